package portal

import "fmt"

// PINLength is the number of digits the portal's virtual keypad expects.
const PINLength = 6

// Credentials holds a portal login. The password is kept only as parsed
// digits, never as a plain string.
type Credentials struct {
	Username string
	digits   []int
}

// ParseCredentials validates the raw username/password pair. The password
// must be exactly PINLength digits.
func ParseCredentials(username, password string) (Credentials, error) {
	if username == "" {
		return Credentials{}, fmt.Errorf("username is empty")
	}
	if len(password) != PINLength {
		return Credentials{}, fmt.Errorf("password must be %d digits, got %d", PINLength, len(password))
	}
	digits := make([]int, len(password))
	for i, r := range password {
		if r < '0' || r > '9' {
			return Credentials{}, fmt.Errorf("password must contain only digits")
		}
		digits[i] = int(r - '0')
	}
	return Credentials{Username: username, digits: digits}, nil
}

// Digits returns a copy of the password digits.
func (c Credentials) Digits() []int {
	out := make([]int, len(c.digits))
	copy(out, c.digits)
	return out
}
