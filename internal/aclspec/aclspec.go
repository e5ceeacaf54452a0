// Package aclspec loads ACL policy files and compiles them into the
// in-memory form the evaluation engine consumes. A policy file declares
// named ACLs, each an ordered sequence of allow/deny/authenticate/deny-with
// clauses with tagged expression trees.
package aclspec

import (
	"errors"
	"strings"
)

const (
	// FileSuffix is the expected suffix of policy files.
	FileSuffix = ".acl.yaml"

	// RightAll is the right name matching every requested right.
	RightAll = "all"
)

var (
	ErrInvalidPolicy = errors.New("invalid policy")
	ErrInvalidACE    = errors.New("invalid ace")
	ErrInvalidExpr   = errors.New("invalid expression")
)

// IsPolicyFile checks if the path looks like an ACL policy file.
func IsPolicyFile(path string) bool {
	return strings.HasSuffix(path, FileSuffix)
}
