package floor

import "encoding/json"

// Balances render as 0 when no value is stored.

func (a Admin) MarshalJSON() ([]byte, error) {
	type alias Admin
	return json.Marshal(struct {
		alias
		Balance int64 `json:"balance"`
	}{alias(a), a.CurrentBalance()})
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	return json.Marshal(struct {
		alias
		Balance int64 `json:"balance"`
	}{alias(u), u.CurrentBalance()})
}

func (m Machine) MarshalJSON() ([]byte, error) {
	type alias Machine
	return json.Marshal(struct {
		alias
		Balance int64 `json:"balance"`
	}{alias(m), m.CurrentBalance()})
}
