package database

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Casbin builds the RBAC enforcer with its policy stored next to the service tables.
func Casbin(db *gorm.DB, modelPath string) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("initialize casbin adapter: %w", err)
	}

	e, err := casbin.NewEnforcer(modelPath, adapter)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	// Add default policy
	if hasPolicy, _ := e.HasPolicy(RoleAdmin, "/v1/admin*", "(GET)|(POST)|(PUT)|(DELETE)"); !hasPolicy {
		if _, err := e.AddPolicy(RoleAdmin, "/v1/admin*", "(GET)|(POST)|(PUT)|(DELETE)"); err != nil {
			return nil, fmt.Errorf("add default policy: %w", err)
		}
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return e, nil
}
