package remote

import "github.com/pquerna/otp/totp"

// deriveTOTP computes a single-use code from an mfa_secret seed for the
// current tick, per §4.5 "if credentials include a TOTP secret, derive
// a single-use code deterministically from current time".
func deriveTOTP(secret string) (string, error) {
	return totp.GenerateCode(secret, nowFunc())
}
