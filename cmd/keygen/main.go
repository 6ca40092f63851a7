package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// keygen generates an RSA signing key for the accounts API. The file name
// minus extension becomes the JWT kid, so rotating keys means generating a
// new file and restarting the service; old files stay behind for
// verification until removed.
func main() {
	dir := flag.String("dir", "keys", "directory to write the key into")
	kid := flag.String("kid", "", "key identifier, defaults to the current date")
	bits := flag.Int("bits", 2048, "RSA key size in bits")
	flag.Parse()

	if *bits < 2048 {
		log.Fatalf("refusing to generate a key smaller than 2048 bits")
	}

	id := *kid
	if id == "" {
		id = time.Now().UTC().Format("20060102")
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		log.Fatalf("create key directory: %v", err)
	}

	path := filepath.Join(*dir, id+".pem")
	if _, err := os.Stat(path); err == nil {
		log.Fatalf("key file %s already exists, pick another kid", path)
	}

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		log.Fatalf("create key file: %v", err)
	}

	if err := pem.Encode(file, block); err != nil {
		_ = file.Close()
		log.Fatalf("write key file: %v", err)
	}

	if err := file.Close(); err != nil {
		log.Fatalf("close key file: %v", err)
	}

	fmt.Printf("wrote %d-bit RSA key %s (kid %q)\n", *bits, path, id)
}
