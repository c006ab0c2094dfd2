package executor

import "fmt"

func errInvariantDanglingExpiration(key string) error {
	return fmt.Errorf("executor: expiration entry for %q has no matching data entry", key)
}

func errInvariantZSetLengthMismatch(key string) error {
	return fmt.Errorf("executor: sorted set %q member/score arrays disagree in length", key)
}
