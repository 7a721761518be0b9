package network

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/altuslabsxyz/workspaces-go/types"
)

const devIDTimeLayout = "20060102150405"

// DevAccountID returns a fresh "dev-<yyyymmddhhmmss>-<nnnnn>" identifier.
func DevAccountID(now time.Time) (types.AccountID, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", fmt.Errorf("failed to generate dev account id: %w", err)
	}
	return types.ParseAccountID(fmt.Sprintf("dev-%s-%d", now.UTC().Format(devIDTimeLayout), 10000+n.Int64()))
}

// DevGenerate returns a fresh dev account id and key.
func DevGenerate() (types.AccountID, types.SecretKey, error) {
	id, err := DevAccountID(time.Now())
	if err != nil {
		return "", types.SecretKey{}, err
	}
	sk, err := types.GenerateSecretKey()
	if err != nil {
		return "", types.SecretKey{}, err
	}
	return id, sk, nil
}
