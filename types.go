package labdb

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Permission is a named capability that can be granted to users and groups.
type Permission struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Codename string `json:"codename"`
}

// Group bundles permissions for a set of users.
type Group struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// UserMessage is a pending notice shown to a user on their next page load.
type UserMessage struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"userId"`
	Message string `json:"message"`
}

func (m UserMessage) String() string {
	return m.Message
}

// User is an account used for ownership of records and web authentication.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email,omitempty"`
	AuthService string     `json:"authService"`
	IsStaff     bool       `json:"isStaff"`
	IsActive    bool       `json:"isActive"`
	IsSuperuser bool       `json:"isSuperuser"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	DateJoined  *time.Time `json:"dateJoined,omitempty"`
	Groups      []Group    `json:"groups,omitempty"`

	// PasswordHash is never serialized.
	PasswordHash string `json:"-"`
}

// FullName joins first and last name with a single space.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	return strings.Join(parts, " ")
}

// PasswdEntry is the subset of a system password database entry needed to
// provision a user.
type PasswdEntry struct {
	Name  string
	Gecos string
}

// WebSession is server-side state for a logged-in browser.
type WebSession struct {
	Key        string         `json:"key"`
	UserID     *int64         `json:"userId,omitempty"`
	Data       map[string]any `json:"data"`
	ExpireDate time.Time      `json:"expireDate"`
}

// NewWebSession returns a session with empty data.
func NewWebSession(key string, expires time.Time) *WebSession {
	return &WebSession{Key: key, Data: map[string]any{}, ExpireDate: expires}
}

func (s *WebSession) Get(key string) (any, bool) {
	if s.Data == nil {
		return nil, false
	}
	v, ok := s.Data[key]
	return v, ok
}

func (s *WebSession) Set(key string, value any) {
	if s.Data == nil {
		s.Data = map[string]any{}
	}
	s.Data[key] = value
}

func (s *WebSession) Delete(key string) {
	delete(s.Data, key)
}

// Expired reports whether the session is past its expiry at now.
func (s *WebSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpireDate)
}

// ConfigNode is one node of the hierarchical configuration tree. Values are
// arbitrary JSON documents.
type ConfigNode struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	ParentID *int64          `json:"parentId,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Comment  string          `json:"comment,omitempty"`
	UserID   *int64          `json:"userId,omitempty"`
	Children []*ConfigNode   `json:"children,omitempty"`
}

// DecodeValue unmarshals the node value into v.
func (n *ConfigNode) DecodeValue(v any) error {
	if len(n.Value) == 0 {
		return json.Unmarshal([]byte("null"), v)
	}
	return json.Unmarshal(n.Value, v)
}

// String renders name=value with the value in its stored JSON form, so
// strings come out quoted.
func (n *ConfigNode) String() string {
	if len(n.Value) == 0 {
		return n.Name + "=null"
	}
	return n.Name + "=" + string(n.Value)
}

// Country is an ISO 3166 country.
type Country struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	ISOCode string `json:"isocode"`
}

// CountrySet is an arbitrary named selection of countries.
type CountrySet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Countries []Country `json:"countries,omitempty"`
}

// Language is an ISO 639 language.
type Language struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	ISOCode string `json:"isocode"`
}

// LanguageSet is an arbitrary named selection of languages.
type LanguageSet struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Languages []Language `json:"languages,omitempty"`
}

// AttributeType declares the name and value type of an attribute row.
type AttributeType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ValueType   ValueType `json:"valueType"`
	Description string    `json:"description,omitempty"`
}

// Attribute is a typed key/value row attached to an owning entity.
type Attribute struct {
	ID      int64           `json:"id"`
	OwnerID int64           `json:"ownerId"`
	Type    AttributeType   `json:"type"`
	Value   json.RawMessage `json:"value"`
}

// Name returns the attribute type name.
func (a *Attribute) Name() string {
	return a.Type.Name
}

// DecodeValue unmarshals the attribute value into v.
func (a *Attribute) DecodeValue(v any) error {
	return json.Unmarshal(a.Value, v)
}

// EquipmentCategory is similar to ENTITY-MIB::PhysicalClass.
type EquipmentCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (c EquipmentCategory) String() string {
	return fmt.Sprintf("%s(%d)", c.Name, c.ID+1)
}

// InterfaceType is an IANAifType entry.
type InterfaceType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Enumeration int32  `json:"enumeration"`
}

func (t InterfaceType) String() string {
	return fmt.Sprintf("%s(%d)", t.Name, t.Enumeration)
}

// Network is a layer 2 or layer 3 network segment.
type Network struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IPNetwork string `json:"ipNetwork,omitempty"`
	BridgeID  string `json:"bridgeId,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (n Network) String() string {
	switch {
	case n.IPNetwork != "":
		return fmt.Sprintf("Net: %s (%s)", n.Name, n.IPNetwork)
	case n.BridgeID != "":
		return fmt.Sprintf("Net: %s: %s", n.Name, n.BridgeID)
	default:
		return fmt.Sprintf("Net: %s", n.Name)
	}
}

// Interface is a network interface of a piece of equipment.
type Interface struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Alias           string `json:"alias,omitempty"`
	IfIndex         *int32 `json:"ifindex,omitempty"`
	Description     string `json:"description,omitempty"`
	MACAddr         string `json:"macaddr,omitempty"`
	VLAN            int32  `json:"vlan"`
	IPAddr          string `json:"ipaddr,omitempty"`
	MTU             *int32 `json:"mtu,omitempty"`
	Speed           *int64 `json:"speed,omitempty"`
	Status          int32  `json:"status"`
	InterfaceTypeID *int64 `json:"interfaceTypeId,omitempty"`
	ParentID        *int64 `json:"parentId,omitempty"`
	EquipmentID     *int64 `json:"equipmentId,omitempty"`
	NetworkID       *int64 `json:"networkId,omitempty"`
}

// SoftwareCategory is the role or function of a piece of software.
type SoftwareCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Software is an installable or embedded software product.
type Software struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CategoryID   *int64 `json:"categoryId,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Version      string `json:"version,omitempty"`
}

// EquipmentModel is a make/model of equipment.
type EquipmentModel struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Manufacturer     string     `json:"manufacturer,omitempty"`
	CategoryID       *int64     `json:"categoryId,omitempty"`
	Note             string     `json:"note,omitempty"`
	EmbeddedSoftware []Software `json:"embeddedSoftware,omitempty"`
}

// Equipment is a physical or virtual asset in the lab inventory.
type Equipment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ModelID   *int64    `json:"modelId,omitempty"`
	SerialNo  string    `json:"serno,omitempty"`
	ParentID  *int64    `json:"parentId,omitempty"`
	OwnerID   *int64    `json:"ownerId,omitempty"`
	Active    bool      `json:"active"`
	AddedDate time.Time `json:"addedDate"`
	Comments  string    `json:"comments,omitempty"`
}

// Environment is a named collection of equipment that tests run against.
type Environment struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID *int64 `json:"ownerId,omitempty"`
}

// TestEquipment binds equipment to an environment. It also marks the unit
// under test.
type TestEquipment struct {
	ID            int64              `json:"id"`
	EquipmentID   int64              `json:"equipmentId"`
	EnvironmentID int64              `json:"environmentId"`
	UUT           bool               `json:"uut"`
	Roles         []SoftwareCategory `json:"roles,omitempty"`
}

// FunctionalArea is a product area that test cases and vendors cover.
type FunctionalArea struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TestCase is a documented, possibly automated, test.
type TestCase struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Purpose         string           `json:"purpose,omitempty"`
	PassCriteria    string           `json:"passCriteria,omitempty"`
	Automated       bool             `json:"automated"`
	Interactive     bool             `json:"interactive"`
	FunctionalAreas []FunctionalArea `json:"functionalAreas,omitempty"`
}

// TestSuite groups test cases.
type TestSuite struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Purpose   string     `json:"purpose,omitempty"`
	TestCases []TestCase `json:"testCases,omitempty"`
}

// TestJob is a scheduled run of a suite in an environment.
type TestJob struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	UserID        *int64 `json:"userId,omitempty"`
	SuiteID       *int64 `json:"suiteId,omitempty"`
	EnvironmentID *int64 `json:"environmentId,omitempty"`
	ScheduleID    *int64 `json:"scheduleId,omitempty"`
}

// TestResultData is extra data captured by a test run.
type TestResultData struct {
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data"`
	Note string          `json:"note,omitempty"`
}

// TestResult is the outcome of running a module, suite, test or runner.
// Results form a tree through ParentID.
type TestResult struct {
	ID                 int64          `json:"id"`
	ObjectType         ObjectType     `json:"objectType"`
	TestCaseID         *int64         `json:"testCaseId,omitempty"`
	TestImplementation string         `json:"testImplementation,omitempty"`
	TesterID           *int64         `json:"testerId,omitempty"`
	EnvironmentID      *int64         `json:"environmentId,omitempty"`
	ParentID           *int64         `json:"parentId,omitempty"`
	StartTime          *time.Time     `json:"startTime,omitempty"`
	EndTime            *time.Time     `json:"endTime,omitempty"`
	Arguments          string         `json:"arguments,omitempty"`
	Result             TestResultCode `json:"result"`
	Diagnostic         string         `json:"diagnostic,omitempty"`
	ResultsLocation    string         `json:"resultsLocation,omitempty"`
	TestVersion        string         `json:"testVersion,omitempty"`
	Note               string         `json:"note,omitempty"`
	Valid              bool           `json:"valid"`
	DataID             *int64         `json:"dataId,omitempty"`
}

// Duration is the elapsed run time, or zero when the run has not finished.
func (r *TestResult) Duration() time.Duration {
	if r.StartTime == nil || r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(*r.StartTime)
}

// ResultSummary counts results by code.
type ResultSummary map[TestResultCode]int

// Total is the number of results counted.
func (s ResultSummary) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Schedule is a crontab-style run schedule.
type Schedule struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Minute     string `json:"minute"`
	Hour       string `json:"hour"`
	DayOfMonth string `json:"dayOfMonth"`
	Month      string `json:"month"`
	DayOfWeek  string `json:"dayOfWeek"`
	UserID     *int64 `json:"userId,omitempty"`
}

// NewSchedule returns a schedule that fires every minute.
func NewSchedule(name string, user *User) *Schedule {
	s := &Schedule{Name: name, Minute: "*", Hour: "*", DayOfMonth: "*", Month: "*", DayOfWeek: "*"}
	if user != nil {
		id := user.ID
		s.UserID = &id
	}
	return s
}

// CronSpec renders the five crontab fields.
func (s *Schedule) CronSpec() string {
	return strings.Join([]string{s.Minute, s.Hour, s.DayOfMonth, s.Month, s.DayOfWeek}, " ")
}

// Trap is a received SNMP trap, stored as a decoded document.
type Trap struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

// Corporation is a vendor, customer or partner organization.
type Corporation struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Notes    string           `json:"notes,omitempty"`
	Services []FunctionalArea `json:"services,omitempty"`
}

// Contact is a person in the contact directory.
type Contact struct {
	ID            int64  `json:"id"`
	Prefix        string `json:"prefix,omitempty"`
	FirstName     string `json:"firstName"`
	MiddleName    string `json:"middleName,omitempty"`
	LastName      string `json:"lastName"`
	Title         string `json:"title,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Mobile        string `json:"mobile,omitempty"`
	CorporationID *int64 `json:"corporationId,omitempty"`
	UserID        *int64 `json:"userId,omitempty"`
	Note          string `json:"note,omitempty"`
}

// AddressBookEntry is a free-form address book card, separate from the
// contact directory.
type AddressBookEntry struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Address is a postal address.
type Address struct {
	ID            int64  `json:"id"`
	Address       string `json:"address"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city"`
	StateProvince string `json:"stateProvince,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	CountryID     *int64 `json:"countryId,omitempty"`
}

func (a Address) String() string {
	parts := []string{a.Address}
	if a.Address2 != "" {
		parts = append(parts, a.Address2)
	}
	parts = append(parts, strings.TrimSpace(a.City+" "+a.StateProvince+" "+a.PostalCode))
	return strings.Join(parts, ", ")
}

// Location is a site code, such as a lab room, tied to an address and a
// responsible contact.
type Location struct {
	ID           int64  `json:"id"`
	LocationCode string `json:"locationCode"`
	AddressID    *int64 `json:"addressId,omitempty"`
	ContactID    *int64 `json:"contactId,omitempty"`
}

// LoginAccount is a credential for logging in to lab equipment or services.
// The password is kept as entered since test code replays it.
type LoginAccount struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	Login      string `json:"login"`
	Password   string `json:"-"`
	Note       string `json:"note,omitempty"`
}

// CapabilityGroup groups related capability types.
type CapabilityGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CapabilityType names a capability and the kind of value it carries.
type CapabilityType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ValueType   ValueType `json:"valueType"`
	Description string    `json:"description,omitempty"`
	GroupID     *int64    `json:"groupId,omitempty"`
}

// Capability records what a piece of equipment can do.
type Capability struct {
	ID          int64           `json:"id"`
	EquipmentID int64           `json:"equipmentId"`
	Type        CapabilityType  `json:"type"`
	Value       json.RawMessage `json:"value"`
}

// ProjectCategory classifies projects.
type ProjectCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Component is a part of a product that projects and test suites cover.
type Component struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BaseProject is a product line with its components.
type BaseProject struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	CategoryID  *int64      `json:"categoryId,omitempty"`
	Description string      `json:"description,omitempty"`
	Components  []Component `json:"components,omitempty"`
}

// Project is one released version of a base project.
type Project struct {
	ID            int64  `json:"id"`
	BaseProjectID int64  `json:"baseProjectId"`
	Major         int32  `json:"major"`
	Minor         int32  `json:"minor"`
	Subminor      int32  `json:"subminor"`
	Build         string `json:"build,omitempty"`
}

// Version renders major.minor.subminor, with the build appended after a dash.
func (p Project) Version() string {
	v := fmt.Sprintf("%d.%d.%d", p.Major, p.Minor, p.Subminor)
	if p.Build != "" {
		v += "-" + p.Build
	}
	return v
}

// SoftwareVariant is a named build flavor of software, such as "debug".
type SoftwareVariant struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
