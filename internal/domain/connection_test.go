package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBankConnection_Validate(t *testing.T) {
	valid := func() BankConnection {
		return BankConnection{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Provider:    "plaid",
			Credentials: ProviderCredentials{AccessToken: "access-token"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*BankConnection)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid connection should pass",
			mutate:  func(c *BankConnection) {},
			wantErr: false,
		},
		{
			name:    "missing ID should fail",
			mutate:  func(c *BankConnection) { c.ID = uuid.Nil },
			wantErr: true,
			errMsg:  "connection ID cannot be empty",
		},
		{
			name:    "missing user should fail",
			mutate:  func(c *BankConnection) { c.UserID = uuid.Nil },
			wantErr: true,
			errMsg:  "connection must belong to a user",
		},
		{
			name:    "missing provider should fail",
			mutate:  func(c *BankConnection) { c.Provider = "" },
			wantErr: true,
			errMsg:  "connection provider cannot be empty",
		},
		{
			name:    "missing access token should fail",
			mutate:  func(c *BankConnection) { c.Credentials.AccessToken = "" },
			wantErr: true,
			errMsg:  "connection credentials must include an access token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := valid()
			tt.mutate(&conn)

			err := conn.Validate()
			if tt.wantErr {
				assert.EqualError(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
