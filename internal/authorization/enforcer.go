package authorization

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/railzwaylabs/roomledger/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ActionRead        = "read"
	ActionPay         = "pay"
	ActionManageRates = "manage_rates"
	ActionCalibrate   = "calibrate"
	ActionMaintain    = "maintain"
)

const rbacModel = `
[request_definition]
r = sub, bld, act

[policy_definition]
p = sub, bld, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.bld == "*" || r.bld == p.bld) && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{RoleSuperAdmin, "*", "*"},
	{RoleAdmin, "*", ActionRead},
	{RoleAdmin, "*", ActionPay},
	{RoleAdmin, "*", ActionManageRates},
	{RoleAdmin, "*", ActionCalibrate},
	{RoleViewer, "*", ActionRead},
}

// Authorizer verifies tokens and checks (role, building, action) against
// the policy. A zero secret disables authentication.
type Authorizer struct {
	secret   []byte
	enforcer *casbin.Enforcer
	log      *zap.Logger
}

func NewAuthorizer(cfg config.Config, log *zap.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	return withPolicies(cfg, enforcer, log)
}

// NewPersistentAuthorizer keeps policies in the casbin_rule table so rules
// added on one instance survive restarts and are seen by the others.
func NewPersistentAuthorizer(cfg config.Config, db *gorm.DB, log *zap.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("create policy adapter: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	return withPolicies(cfg, enforcer, log)
}

func withPolicies(cfg config.Config, enforcer *casbin.Enforcer, log *zap.Logger) (*Authorizer, error) {
	policies := append([][]string{}, defaultPolicies...)
	for _, line := range cfg.Auth.Policy {
		rule, err := parsePolicyLine(line)
		if err != nil {
			return nil, err
		}
		policies = append(policies, rule)
	}
	// AddPolicy is a no-op for rules the adapter already loaded.
	for _, rule := range policies {
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", rule, err)
		}
	}

	a := &Authorizer{
		secret:   []byte(cfg.Auth.JWTSecret),
		enforcer: enforcer,
		log:      log.Named("authorization"),
	}
	if !a.Enabled() {
		a.log.Warn("jwt secret not configured; requests are not authenticated")
	}
	return a, nil
}

// parsePolicyLine reads "p, role, building, action"; the leading "p" is
// optional.
func parsePolicyLine(line string) ([]string, error) {
	var fields []string
	for _, f := range strings.Split(line, ",") {
		fields = append(fields, strings.TrimSpace(f))
	}
	if len(fields) == 4 && fields[0] == "p" {
		fields = fields[1:]
	}
	if len(fields) != 3 || fields[0] == "" || fields[1] == "" || fields[2] == "" {
		return nil, fmt.Errorf("invalid policy line %q", line)
	}
	return fields, nil
}

func (a *Authorizer) Enabled() bool {
	return len(a.secret) > 0
}

// Verify turns a bearer token into an identity.
func (a *Authorizer) Verify(token string) (Identity, error) {
	claims, err := ParseJWT(token, a.secret)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return Identity{
		Subject:     claims.Subject,
		Role:        claims.Role,
		BuildingIDs: claims.BuildingIDs,
	}, nil
}

// Authorize reports ErrForbidden unless id may perform action on building.
// Every role but super_admin is limited to the buildings named in its token.
func (a *Authorizer) Authorize(id Identity, building, action string) error {
	if id.Role != RoleSuperAdmin && !id.BuildingIDs.Contains(building) {
		return fmt.Errorf("%w: building %s not assigned", ErrForbidden, building)
	}
	ok, err := a.enforcer.Enforce(id.Role, building, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s may not %s", ErrForbidden, id.Role, action)
	}
	return nil
}
