package labdb

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserFullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Jane", "Doe", "Jane Doe"},
		{"", "Doe", "Doe"},
		{"Jane", "", "Jane"},
		{"", "", ""},
	}
	for _, tt := range tests {
		u := &User{FirstName: tt.first, LastName: tt.last}
		assert.Equal(t, tt.want, u.FullName())
	}
}

func TestUserPasswordHashIsNotSerialized(t *testing.T) {
	b, err := json.Marshal(&User{Username: "jdoe", PasswordHash: "$2a$10$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
}

func TestWebSessionData(t *testing.T) {
	expires := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	s := NewWebSession("abc", expires)

	_, ok := s.Get("user")
	assert.False(t, ok)

	s.Set("user", "jdoe")
	v, ok := s.Get("user")
	require.True(t, ok)
	assert.Equal(t, "jdoe", v)

	s.Delete("user")
	_, ok = s.Get("user")
	assert.False(t, ok)

	assert.False(t, s.Expired(expires.Add(-time.Second)))
	assert.True(t, s.Expired(expires))

	var zero WebSession
	_, ok = zero.Get("x")
	assert.False(t, ok)
	zero.Set("x", 1)
	assert.Equal(t, map[string]any{"x": 1}, zero.Data)
}

func TestConfigNodeValue(t *testing.T) {
	n := &ConfigNode{Name: "debug", Value: json.RawMessage(`true`)}
	assert.Equal(t, "debug=true", n.String())

	var b bool
	require.NoError(t, n.DecodeValue(&b))
	assert.True(t, b)

	site := &ConfigNode{Name: "site", Value: json.RawMessage(`"b2"`)}
	assert.Equal(t, `site="b2"`, site.String())

	empty := &ConfigNode{Name: "flags"}
	assert.Equal(t, "flags=null", empty.String())
	var m map[string]any
	require.NoError(t, empty.DecodeValue(&m))
	assert.Nil(t, m)
}

func TestInventoryStrings(t *testing.T) {
	assert.Equal(t, "chassis(4)", EquipmentCategory{ID: 3, Name: "chassis"}.String())
	assert.Equal(t, "ethernetCsmacd(6)", InterfaceType{Name: "ethernetCsmacd", Enumeration: 6}.String())

	assert.Equal(t, "Net: lab (10.0.0.0/24)", Network{Name: "lab", IPNetwork: "10.0.0.0/24", BridgeID: "br0"}.String())
	assert.Equal(t, "Net: lab: br0", Network{Name: "lab", BridgeID: "br0"}.String())
	assert.Equal(t, "Net: lab", Network{Name: "lab"}.String())
}

func TestTestResultDuration(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	assert.Equal(t, 90*time.Second, (&TestResult{StartTime: &start, EndTime: &end}).Duration())
	assert.Zero(t, (&TestResult{StartTime: &start}).Duration())
}

func TestResultSummary(t *testing.T) {
	s := ResultSummary{ResultPassed: 4, ResultFailed: 2, ResultAbort: 1}
	assert.Equal(t, 7, s.Total())
	assert.Zero(t, ResultSummary{}.Total())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"PASSED":4,"FAILED":2,"ABORT":1}`, string(b))

	var back ResultSummary
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}

func TestSchedule(t *testing.T) {
	s := NewSchedule("nightly", &User{ID: 9})
	assert.Equal(t, "* * * * *", s.CronSpec())
	require.NotNil(t, s.UserID)
	assert.Equal(t, int64(9), *s.UserID)

	s.Minute, s.Hour = "30", "2"
	assert.Equal(t, "30 2 * * *", s.CronSpec())

	assert.Nil(t, NewSchedule("anon", nil).UserID)
}

func TestModels(t *testing.T) {
	names := ModelNames()
	assert.Contains(t, names, "User")
	assert.Contains(t, names, "TestResult")
	assert.Len(t, RequiredTables(), len(names))

	table, ok := ModelTable("TestResult")
	require.True(t, ok)
	assert.Equal(t, "test_results", table)

	_, ok = ModelTable("Nope")
	assert.False(t, ok)
}

func TestProjectVersion(t *testing.T) {
	assert.Equal(t, "2.0.1", Project{Major: 2, Subminor: 1}.Version())
	assert.Equal(t, "2.0.1-b7", Project{Major: 2, Subminor: 1, Build: "b7"}.Version())
}

func TestAddressString(t *testing.T) {
	a := Address{Address: "1 Main St", City: "Springfield"}
	assert.Equal(t, "1 Main St, Springfield", a.String())
	a.Address2, a.PostalCode = "Suite 4", "97477"
	assert.Equal(t, "1 Main St, Suite 4, Springfield 97477", a.String())
}

func TestLoginAccountPasswordIsNotSerialized(t *testing.T) {
	b, err := json.Marshal(LoginAccount{Identifier: "console", Login: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
}

func TestModelCatalogOrder(t *testing.T) {
	names := ModelNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "AddressBookEntry", names[0])
	assert.Equal(t, "TestResult", names[len(names)-1])
	assert.NotContains(t, names, "Cookie")

	for _, model := range []string{"Address", "Location", "LoginAccount", "Capability", "Project", "Component", "SoftwareVariant"} {
		_, ok := ModelTable(model)
		assert.True(t, ok, model)
	}
}
