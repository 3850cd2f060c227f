package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithIPv4Host(t *testing.T) {
	lookup := func(_ context.Context, host string) (string, error) {
		if host == "db.example.com" {
			return "10.0.0.7", nil
		}
		return "", errors.New("desconocido")
	}

	assert.Equal(t,
		"postgresql://u:p@10.0.0.7:6543/kryo?sslmode=require",
		withIPv4Host("postgresql://u:p@db.example.com:6543/kryo?sslmode=require", lookup))
	assert.Equal(t,
		"postgresql://u:p@10.0.0.7:5432/kryo",
		withIPv4Host("postgresql://u:p@db.example.com/kryo", lookup))
	assert.Equal(t,
		"postgresql://u:p@otro:5432/kryo",
		withIPv4Host("postgresql://u:p@otro:5432/kryo", lookup))
}

func TestLookupIPv4_Literales(t *testing.T) {
	ip, err := lookupIPv4(context.Background(), "127.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	_, err = lookupIPv4(context.Background(), "::1")
	assert.ErrorIs(t, err, errNoIPv4)
}
