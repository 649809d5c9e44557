package middleware

import (
	"fmt"
	"slices"
	"strings"
)

// Claim names that contribute roles.
const (
	ClaimCustomRoles   = "custom:roles"
	ClaimCognitoGroups = "cognito:groups"
	ClaimScope         = "scope"
	ClaimSubject       = "sub"
)

// roleClaims maps each role-bearing claim to the separator used when the
// claim arrives as a single string.
var roleClaims = []struct {
	name string
	sep  string
}{
	{ClaimCustomRoles, ","},
	{ClaimCognitoGroups, ","},
	{ClaimScope, " "},
}

// RolesFromClaims returns the union of the roles named by custom:roles,
// cognito:groups and scope. custom:roles and cognito:groups may be lists or
// comma-separated strings; scope is space-separated. Duplicates are removed;
// the result is sorted.
func RolesFromClaims(claims map[string]any) []string {
	set := make(map[string]struct{})
	for _, c := range roleClaims {
		for _, r := range claimStrings(claims[c.name], c.sep) {
			set[r] = struct{}{}
		}
	}
	roles := make([]string, 0, len(set))
	for r := range set {
		roles = append(roles, r)
	}
	slices.Sort(roles)
	return roles
}

func claimStrings(v any, sep string) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		// HTTP API authorizers flatten lists to "[a b]".
		if strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]") {
			return strings.Fields(val[1 : len(val)-1])
		}
		var out []string
		for _, part := range strings.Split(val, sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []string:
		return slices.DeleteFunc(slices.Clone(val), func(s string) bool { return s == "" })
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := fmt.Sprint(item); s != "" && item != nil {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// AuthContextFromClaims builds an AuthContext from decoded token claims.
// The caller is authenticated when a non-empty sub claim is present.
func AuthContextFromClaims(claims map[string]any) *AuthContext {
	if len(claims) == 0 {
		return &AuthContext{}
	}
	sub, _ := claims[ClaimSubject].(string)
	meta := make(map[string]any, len(claims))
	for k, v := range claims {
		meta[k] = v
	}
	return &AuthContext{
		UserID:          sub,
		UserRoles:       RolesFromClaims(claims),
		IsAuthenticated: sub != "",
		Metadata:        meta,
	}
}
