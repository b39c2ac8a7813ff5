package auth

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/models"
)

// NormalizeWallet validates a hex address and returns its checksummed form.
func NormalizeWallet(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", apperr.InvalidInput("walletAddress must be a 0x-prefixed hex address")
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return "", apperr.InvalidInput("walletAddress must not be the zero address")
	}
	return addr.Hex(), nil
}

// LinkWallet stores the wallet on the user. Relinking replaces the previous
// wallet; a wallet owned by someone else is a conflict.
func (s *Service) LinkWallet(ctx context.Context, userID primitive.ObjectID, address string) (*models.User, error) {
	normalized, err := NormalizeWallet(address)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetWallet(ctx, userID, normalized); err != nil {
		return nil, err
	}
	s.log.Info("wallet linked", zap.String("userId", userID.Hex()), zap.String("wallet", normalized))
	return s.users.FindByID(ctx, userID)
}
