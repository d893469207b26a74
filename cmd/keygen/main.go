// keygen writes a fresh RSA key pair for signing access tokens:
// certs/private.pem (PKCS#8) and certs/public.pem (PKIX).
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"auth-service/internal/security"
)

func main() {
	dir := flag.String("out", "certs", "Output directory")
	bits := flag.Int("bits", 2048, "RSA key size")
	force := flag.Bool("force", false, "Overwrite existing keys")
	flag.Parse()

	if err := run(*dir, *bits, *force); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s and %s\n", filepath.Join(*dir, "private.pem"), filepath.Join(*dir, "public.pem"))
}

func run(dir string, bits int, force bool) error {
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	if !force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists; use -force to overwrite", p)
			}
		}
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return err
	}
	privPEM, err := security.EncodePrivateKey(key)
	if err != nil {
		return err
	}
	pubPEM, err := security.EncodePublicKey(&key.PublicKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return err
	}
	return os.WriteFile(pubPath, pubPEM, 0o644)
}
