package order

import "fmt"

type Status string

const (
	StatusPending Status = "pending"
	// StatusProvisioned means the charge succeeded and service was granted.
	StatusProvisioned Status = "provisioned"
	StatusFailed      Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusProvisioned, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("invalid order status: %q", s)
}
