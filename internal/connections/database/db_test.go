package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSNDefaultsSSLMode(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "pos", Password: "secret", Database: "pos"}
	assert.Equal(t, "host=db port=5432 user=pos password=secret dbname=pos sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
