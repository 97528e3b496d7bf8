package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateLabel(t *testing.T) {
	tests := []struct {
		name string
		txt  []string
		want string
	}{
		{"manufacturer and model", []string{"mfg=HP", "mdl=OfficeJet 8010", "ty=HP OfficeJet"}, "HP OfficeJet 8010"},
		{"model only falls back to ty", []string{"mdl=OfficeJet", "ty=HP OfficeJet Pro"}, "HP OfficeJet Pro"},
		{"manufacturer flag falls back to ty", []string{"mfg", "mdl=X", "ty=Brother MFC"}, "Brother MFC"},
		{"nothing usable", []string{"rs=eSCL"}, "Scanner._uscan._tcp.local."},
		{"empty record", nil, "Scanner._uscan._tcp.local."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Candidate{InstanceName: "Scanner._uscan._tcp.local.", Text: EncodeTXT(tt.txt)}
			assert.Equal(t, tt.want, c.Label())
		})
	}
}
