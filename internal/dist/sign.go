package dist

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

// SignatureSuffix is appended to the signed file's name.
const SignatureSuffix = ".asc"

// Sign writes an armored detached OpenPGP signature of path to path.asc,
// using the first private key in the armored keyring keyFile. Encrypted keys
// are unlocked with passphrase.
func Sign(path, keyFile, passphrase string) (string, error) {
	log := logger.Logger()

	signer, err := loadSigner(keyFile, passphrase)
	if err != nil {
		return "", err
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for signing: %w", path, err)
	}
	defer in.Close()

	sigPath := path + SignatureSuffix
	out, err := os.Create(sigPath)
	if err != nil {
		return "", fmt.Errorf("creating signature %s: %w", sigPath, err)
	}
	defer out.Close()

	if err := openpgp.ArmoredDetachSign(out, signer, in, nil); err != nil {
		os.Remove(sigPath)
		return "", fmt.Errorf("signing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing signature %s: %w", sigPath, err)
	}

	log.Infof("signed %s with key %X", path, signer.PrimaryKey.KeyId)
	return sigPath, nil
}

func loadSigner(keyFile, passphrase string) (*openpgp.Entity, error) {
	f, err := os.Open(keyFile)
	if err != nil {
		return nil, fmt.Errorf("opening signing key: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("reading signing key %s: %w", keyFile, err)
	}

	for _, entity := range keyring {
		if entity.PrivateKey == nil {
			continue
		}
		if err := unlock(entity, passphrase); err != nil {
			return nil, err
		}
		return entity, nil
	}
	return nil, fmt.Errorf("no private key found in %s", keyFile)
}

func unlock(entity *openpgp.Entity, passphrase string) error {
	if entity.PrivateKey.Encrypted {
		if passphrase == "" {
			return fmt.Errorf("signing key is encrypted and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return fmt.Errorf("unlocking signing key: %w", err)
		}
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return fmt.Errorf("unlocking signing subkey: %w", err)
			}
		}
	}
	return nil
}
