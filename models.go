package labdb

// modelTables maps every stored model to its primary table, in the order the
// catalog has always listed them. Attribute models share the row layout in
// attributes.go.
var modelTables = []struct {
	Name  string
	Table string
}{
	{"AddressBookEntry", "addressbook"},
	{"Permission", "auth_permission"},
	{"Group", "auth_group"},
	{"UserMessage", "auth_message"},
	{"User", "auth_user"},
	{"WebSession", "client_session"},
	{"ConfigNode", "config"},
	{"Country", "country_codes"},
	{"CountrySet", "country_sets"},
	{"LoginAccount", "account_ids"},
	{"Language", "language_codes"},
	{"LanguageSet", "language_sets"},
	{"Address", "addresses"},
	{"Contact", "contacts"},
	{"Schedule", "schedule"},
	{"Location", "location"},
	{"CapabilityType", "capability_type"},
	{"CapabilityGroup", "capability_group"},
	{"Capability", "capability"},
	{"AttributeType", "attribute_type"},
	{"ProjectCategory", "project_category"},
	{"FunctionalArea", "functional_area"},
	{"Component", "components"},
	{"BaseProject", "projects"},
	{"Project", "project_versions"},
	{"CorporateAttributeType", "corp_attribute_type"},
	{"CorporateAttribute", "corp_attributes"},
	{"Corporation", "corporations"},
	{"SoftwareCategory", "software_category"},
	{"SoftwareAttribute", "software_attributes"},
	{"SoftwareVariant", "software_variant"},
	{"Software", "software"},
	{"EquipmentCategory", "equipment_category"},
	{"InterfaceType", "interface_type"},
	{"Network", "networks"},
	{"Interface", "interfaces"},
	{"EquipmentModel", "equipment_model"},
	{"EquipmentModelAttribute", "equipment_model_attributes"},
	{"Equipment", "equipment"},
	{"EquipmentAttribute", "equipment_attributes"},
	{"EnvironAttributeType", "environmentattribute_type"},
	{"Environment", "environments"},
	{"EnvironmentAttribute", "environment_attributes"},
	{"TestEquipment", "testequipment"},
	{"Trap", "traps"},
	{"TestCase", "test_cases"},
	{"TestSuite", "test_suites"},
	{"TestJob", "test_jobs"},
	{"TestResultData", "test_results_data"},
	{"TestResult", "test_results"},
}

// ModelNames lists the name of every stored model.
func ModelNames() []string {
	names := make([]string, len(modelTables))
	for i, m := range modelTables {
		names[i] = m.Name
	}
	return names
}

// ModelTable returns the primary table for a model name.
func ModelTable(name string) (string, bool) {
	for _, m := range modelTables {
		if m.Name == name {
			return m.Table, true
		}
	}
	return "", false
}

// RequiredTables lists the tables a deployed schema must contain.
func RequiredTables() []string {
	tables := make([]string, len(modelTables))
	for i, m := range modelTables {
		tables[i] = m.Table
	}
	return tables
}
