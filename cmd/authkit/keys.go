package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Genera un seed de firma ed25519 para jwt.signing_seed",
		RunE: func(*cobra.Command, []string) error {
			seed := make([]byte, ed25519.SeedSize)
			if _, err := rand.Read(seed); err != nil {
				return err
			}

			pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
			sum := sha256.Sum256(pub)
			kid := base64.RawURLEncoding.EncodeToString(sum[:8])

			fmt.Printf("JWT_SIGNING_SEED=%s\n", base64.StdEncoding.EncodeToString(seed))
			fmt.Printf("kid=%s\n", kid)
			return nil
		},
	}
}
