// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
)

type Config struct {
	Secret string
	Issuer string
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func LoadAndBuild(cfg Config) (*Manager, error) {
	key, err := DeriveKey(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to build session token manager: %w", err)
	}

	return &Manager{
		Generator: NewGenerator(key, cfg.Issuer),
		Verifier:  NewVerifier(key, cfg.Issuer),
	}, nil
}
