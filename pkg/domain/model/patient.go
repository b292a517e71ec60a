package model

// PatientIdentity is a best-effort name and age extracted from free text
type PatientIdentity struct {
	Name string `json:"name" masq:"secret"`
	Age  string `json:"age"`
}

// IsComplete reports whether both name and age were found
func (p *PatientIdentity) IsComplete() bool {
	return p != nil && p.Name != "" && p.Age != ""
}
