package labdb

import (
	"context"
	"time"
)

// UserStore manages accounts, groups, permissions and user messages.
type UserStore interface {
	CreateUser(ctx context.Context, user *User, password string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SetPassword(ctx context.Context, id int64, password string) error
	Authenticate(ctx context.Context, username, password string) (*User, error)
	CreateUserFromPasswd(ctx context.Context, entry PasswdEntry) (*User, error)

	EnsureGroup(ctx context.Context, name string) (*Group, error)
	AddUserToGroup(ctx context.Context, userID, groupID int64) error
	UserGroups(ctx context.Context, userID int64) ([]Group, error)
	UserPermissions(ctx context.Context, userID int64) ([]Permission, error)

	AddMessage(ctx context.Context, userID int64, message string) (*UserMessage, error)
	PopMessages(ctx context.Context, userID int64) ([]UserMessage, error)
}

// SessionStore persists web sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, userID *int64) (*WebSession, error)
	GetSession(ctx context.Context, key string) (*WebSession, error)
	SaveSession(ctx context.Context, session *WebSession) error
	DeleteSession(ctx context.Context, key string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// ConfigStore manages the hierarchical configuration tree.
type ConfigStore interface {
	Root(ctx context.Context) (*ConfigNode, error)
	GetNode(ctx context.Context, id int64) (*ConfigNode, error)
	Child(ctx context.Context, parentID int64, name string) (*ConfigNode, error)
	Children(ctx context.Context, parentID int64) ([]*ConfigNode, error)
	Container(ctx context.Context, node *ConfigNode) (*ConfigNode, error)
	Lookup(ctx context.Context, path string) (*ConfigNode, error)
	AddNode(ctx context.Context, parentID int64, name string, value any) (*ConfigNode, error)
	SetValue(ctx context.Context, id int64, value any) error
	DeleteValue(ctx context.Context, id int64) error
	DeleteNode(ctx context.Context, id int64) error
	Subtree(ctx context.Context, id int64) (*ConfigNode, error)
}

// CountryStore manages countries and country sets.
type CountryStore interface {
	CreateCountry(ctx context.Context, name, isocode string) (*Country, error)
	GetCountry(ctx context.Context, isocode string) (*Country, error)
	ListCountries(ctx context.Context) ([]Country, error)

	CreateCountrySet(ctx context.Context, name string) (*CountrySet, error)
	GetCountrySet(ctx context.Context, id int64) (*CountrySet, error)
	GetCountrySetByName(ctx context.Context, name string) (*CountrySet, error)
	ListCountrySets(ctx context.Context) ([]CountrySet, error)
	RenameCountrySet(ctx context.Context, id int64, name string) error
	DeleteCountrySet(ctx context.Context, id int64) error
	SetCountrySetMembers(ctx context.Context, id int64, isocodes []string) error
	AddCountryToSet(ctx context.Context, setID int64, isocode string) error
	RemoveCountryFromSet(ctx context.Context, setID int64, isocode string) error
}

// LanguageStore manages languages and language sets.
type LanguageStore interface {
	CreateLanguage(ctx context.Context, name, isocode string) (*Language, error)
	GetLanguage(ctx context.Context, isocode string) (*Language, error)
	ListLanguages(ctx context.Context) ([]Language, error)

	CreateLanguageSet(ctx context.Context, name string) (*LanguageSet, error)
	GetLanguageSet(ctx context.Context, id int64) (*LanguageSet, error)
	GetLanguageSetByName(ctx context.Context, name string) (*LanguageSet, error)
	ListLanguageSets(ctx context.Context) ([]LanguageSet, error)
	RenameLanguageSet(ctx context.Context, id int64, name string) error
	DeleteLanguageSet(ctx context.Context, id int64) error
	SetLanguageSetMembers(ctx context.Context, id int64, isocodes []string) error
	AddLanguageToSet(ctx context.Context, setID int64, isocode string) error
	RemoveLanguageFromSet(ctx context.Context, setID int64, isocode string) error
}

// AttributeKind selects which entity an attribute row hangs off.
type AttributeKind string

const (
	AttributeKindEquipment      AttributeKind = "equipment"
	AttributeKindEquipmentModel AttributeKind = "equipment_model"
	AttributeKindSoftware       AttributeKind = "software"
	AttributeKindEnvironment    AttributeKind = "environment"
	AttributeKindCorporation    AttributeKind = "corporation"
)

// AttributeStore manages attribute types and attribute rows for every kind.
type AttributeStore interface {
	CreateAttributeType(ctx context.Context, kind AttributeKind, name string, valueType ValueType, description string) (*AttributeType, error)
	GetAttributeType(ctx context.Context, kind AttributeKind, name string) (*AttributeType, error)
	ListAttributeTypes(ctx context.Context, kind AttributeKind) ([]AttributeType, error)

	GetAttribute(ctx context.Context, kind AttributeKind, ownerID int64, name string) (*Attribute, error)
	SetAttribute(ctx context.Context, kind AttributeKind, ownerID int64, name string, value any) (*Attribute, error)
	DeleteAttribute(ctx context.Context, kind AttributeKind, ownerID int64, name string) error
	ListAttributes(ctx context.Context, kind AttributeKind, ownerID int64) ([]Attribute, error)
}

// EquipmentStore manages the equipment inventory and test environments.
type EquipmentStore interface {
	CreateCategory(ctx context.Context, name string) (*EquipmentCategory, error)
	GetCategory(ctx context.Context, name string) (*EquipmentCategory, error)
	CreateInterfaceType(ctx context.Context, name string, enumeration int32) (*InterfaceType, error)
	GetInterfaceType(ctx context.Context, name string) (*InterfaceType, error)
	CreateNetwork(ctx context.Context, network *Network) (*Network, error)
	GetNetwork(ctx context.Context, id int64) (*Network, error)

	CreateSoftwareCategory(ctx context.Context, name, description string) (*SoftwareCategory, error)
	CreateSoftware(ctx context.Context, software *Software) (*Software, error)
	CreateModel(ctx context.Context, model *EquipmentModel) (*EquipmentModel, error)
	GetModel(ctx context.Context, id int64) (*EquipmentModel, error)
	AddEmbeddedSoftware(ctx context.Context, modelID, softwareID int64) error

	CreateEquipment(ctx context.Context, equipment *Equipment) (*Equipment, error)
	GetEquipment(ctx context.Context, id int64) (*Equipment, error)
	GetEquipmentByName(ctx context.Context, name string) (*Equipment, error)
	Subcomponents(ctx context.Context, id int64) ([]Equipment, error)
	Parent(ctx context.Context, id int64) (*Equipment, error)
	AddInterface(ctx context.Context, equipmentID int64, iface *Interface) (*Interface, error)
	Interfaces(ctx context.Context, equipmentID int64) ([]Interface, error)
	AttachSoftware(ctx context.Context, equipmentID, softwareID int64) error
	DetachSoftware(ctx context.Context, equipmentID, softwareID int64) error
	EquipmentSoftware(ctx context.Context, equipmentID int64) ([]Software, error)

	CreateSoftwareVariant(ctx context.Context, name, description string) (*SoftwareVariant, error)
	AddSoftwareVariant(ctx context.Context, softwareID, variantID int64) error
	SoftwareVariants(ctx context.Context, softwareID int64) ([]SoftwareVariant, error)

	CreateCapabilityGroup(ctx context.Context, name string) (*CapabilityGroup, error)
	CreateCapabilityType(ctx context.Context, capabilityType *CapabilityType) (*CapabilityType, error)
	GetCapabilityType(ctx context.Context, name string) (*CapabilityType, error)
	SetCapability(ctx context.Context, equipmentID int64, typeName string, value any) (*Capability, error)
	Capabilities(ctx context.Context, equipmentID int64) ([]Capability, error)

	CreateEnvironment(ctx context.Context, name string, ownerID *int64) (*Environment, error)
	GetEnvironmentByName(ctx context.Context, name string) (*Environment, error)
	AddTestEquipment(ctx context.Context, environmentID, equipmentID int64, uut bool, roleIDs []int64) (*TestEquipment, error)
	EnvironmentEquipment(ctx context.Context, environmentID int64) ([]TestEquipment, error)
	UnitUnderTest(ctx context.Context, environmentID int64) (*Equipment, error)
}

// TestStore manages test cases, suites, jobs and results.
type TestStore interface {
	CreateFunctionalArea(ctx context.Context, name, description string) (*FunctionalArea, error)
	CreateTestCase(ctx context.Context, tc *TestCase) (*TestCase, error)
	GetTestCaseByName(ctx context.Context, name string) (*TestCase, error)
	AddTestCaseArea(ctx context.Context, testCaseID, areaID int64) error
	CreateTestSuite(ctx context.Context, name, purpose string) (*TestSuite, error)
	AddTestCaseToSuite(ctx context.Context, suiteID, testCaseID int64) error
	SuiteTestCases(ctx context.Context, suiteID int64) ([]TestCase, error)
	CreateTestJob(ctx context.Context, job *TestJob) (*TestJob, error)

	RecordResult(ctx context.Context, result *TestResult) (*TestResult, error)
	GetResult(ctx context.Context, id int64) (*TestResult, error)
	ChildResults(ctx context.Context, parentID int64) ([]TestResult, error)
	ResultsForTestCase(ctx context.Context, testCaseID int64, limit int) ([]TestResult, error)
	LatestResult(ctx context.Context, testCaseID int64) (*TestResult, error)
	ResultSummary(ctx context.Context, parentID int64) (ResultSummary, error)
	ResultsBetween(ctx context.Context, from, to time.Time) ([]TestResult, error)
	AttachResultData(ctx context.Context, resultID int64, data any, note string) (*TestResultData, error)
}

// ScheduleStore manages run schedules.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, schedule *Schedule) (*Schedule, error)
	SchedulesForUser(ctx context.Context, userID int64) ([]Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// TrapStore records received traps.
type TrapStore interface {
	StoreTrap(ctx context.Context, ts time.Time, value any) (*Trap, error)
	RecentTraps(ctx context.Context, limit int) ([]Trap, error)
}

// DirectoryStore manages corporations, contacts, addresses, locations, the
// address book and equipment login accounts.
type DirectoryStore interface {
	CreateCorporation(ctx context.Context, name, notes string) (*Corporation, error)
	GetCorporation(ctx context.Context, id int64) (*Corporation, error)
	ListCorporations(ctx context.Context) ([]Corporation, error)
	AddCorporationService(ctx context.Context, corporationID, areaID int64) error
	CreateContact(ctx context.Context, contact *Contact) (*Contact, error)
	GetContact(ctx context.Context, id int64) (*Contact, error)
	ContactsForCorporation(ctx context.Context, corporationID int64) ([]Contact, error)

	CreateAddress(ctx context.Context, address *Address) (*Address, error)
	GetAddress(ctx context.Context, id int64) (*Address, error)
	CreateLocation(ctx context.Context, location *Location) (*Location, error)
	GetLocation(ctx context.Context, code string) (*Location, error)
	CreateAddressBookEntry(ctx context.Context, entry *AddressBookEntry) (*AddressBookEntry, error)
	ListAddressBook(ctx context.Context) ([]AddressBookEntry, error)
	CreateLoginAccount(ctx context.Context, account *LoginAccount) (*LoginAccount, error)
	GetLoginAccount(ctx context.Context, identifier string) (*LoginAccount, error)
	ListLoginAccounts(ctx context.Context) ([]LoginAccount, error)
}

// ProjectStore manages projects, their versions and components.
type ProjectStore interface {
	CreateProjectCategory(ctx context.Context, name string) (*ProjectCategory, error)
	CreateComponent(ctx context.Context, name, description string) (*Component, error)
	ListComponents(ctx context.Context) ([]Component, error)
	CreateProject(ctx context.Context, project *BaseProject) (*BaseProject, error)
	GetProject(ctx context.Context, name string) (*BaseProject, error)
	AddProjectComponent(ctx context.Context, projectID, componentID int64) error
	CreateProjectVersion(ctx context.Context, version *Project) (*Project, error)
	ProjectVersions(ctx context.Context, projectID int64) ([]Project, error)
	AddSuiteComponent(ctx context.Context, suiteID, componentID int64) error
	SuiteComponents(ctx context.Context, suiteID int64) ([]Component, error)
}

// Store bundles every repository.
type Store struct {
	Users      UserStore
	Sessions   SessionStore
	Config     ConfigStore
	Countries  CountryStore
	Languages  LanguageStore
	Attributes AttributeStore
	Equipment  EquipmentStore
	Tests      TestStore
	Schedules  ScheduleStore
	Traps      TrapStore
	Directory  DirectoryStore
	Projects   ProjectStore
}
