package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringAccount returns the keyring account name for a warehouse login.
func KeyringAccount(sf SnowflakeConfig) string {
	return fmt.Sprintf("snowflake:%s@%s", sf.User, sf.Account)
}

// WarehousePassword reads the warehouse password from the OS keyring.
func WarehousePassword(sf SnowflakeConfig) (string, error) {
	if strings.TrimSpace(sf.User) == "" || strings.TrimSpace(sf.Account) == "" {
		return "", keyring.ErrNotFound
	}
	return keyring.Get(KeyringService, KeyringAccount(sf))
}

// SetWarehousePassword stores the warehouse password in the OS keyring.
func SetWarehousePassword(sf SnowflakeConfig, password string) error {
	if strings.TrimSpace(sf.User) == "" || strings.TrimSpace(sf.Account) == "" {
		return errors.New("warehouse user and account are required")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, KeyringAccount(sf), password)
}

// DeleteWarehousePassword removes the warehouse password from the OS keyring.
func DeleteWarehousePassword(sf SnowflakeConfig) error {
	if strings.TrimSpace(sf.User) == "" || strings.TrimSpace(sf.Account) == "" {
		return errors.New("warehouse user and account are required")
	}
	return keyring.Delete(KeyringService, KeyringAccount(sf))
}
