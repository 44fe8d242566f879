package domain

// Field internal names used by the site provisioning workflow. These match
// the wire format the web part clients were built against.
const (
	FieldTitle          = "Title"
	FieldSiteURL        = "EUMSiteURL"
	FieldParentURL      = "EUMParentURL"
	FieldDivision       = "EUMDivision"
	FieldSiteTemplate   = "EUMSiteTemplate"
	FieldGroupSummary   = "EUMGroupSummary"
	FieldAlias          = "EUMAlias"
	FieldSiteVisibility = "EUMSiteVisibility"
	FieldSitePurpose    = "SitePurpose"
	FieldSiteCreated    = "EUMSiteCreated"
	FieldCreateTeam     = "EUMCreateTeam"
	FieldCreateOneNote  = "EUMCreateOneNote"
	FieldCreatePlanner  = "EUMCreatePlanner"
	FieldAuthor         = "Author"
	FieldContentTypeID  = "ContentTypeId"

	// Fields of the Divisions and SiteTemplates metadata lists.
	FieldDivisionPrefix     = "EUMPrefix"
	FieldDivisions          = "EUMDivisions"
	FieldContentTypeName    = "EUMContentTypeName"
	FieldOffice365Group     = "EUMOffice365Group"
	FieldShowSiteVisibility = "EUMShowSiteVisibility"
	FieldShowCreateTeam     = "EUMShowCreateTeam"
	FieldShowCreateOneNote  = "EUMShowCreateOneNote"
	FieldShowCreatePlanner  = "EUMShowCreatePlanner"
)

// HiddenSentinel is the hide-from-listing marker value that excludes a site
// from listings.
const HiddenSentinel = "Hidden"

// SiteListItem is the flat response record projected out of one Sites list
// item. Built fresh per query; immutable after construction.
type SiteListItem struct {
	ID           int        `json:"Id"`
	Title        string     `json:"Title,omitempty"`
	SiteURL      string     `json:"EUMSiteURL,omitempty"`
	ParentURL    string     `json:"EUMParentURL,omitempty"`
	Division     *LookupRef `json:"EUMDivision,omitempty"`
	GroupSummary string     `json:"EUMGroupSummary,omitempty"`
	Alias        string     `json:"EUMAlias,omitempty"`
	Visibility   string     `json:"EUMSiteVisibility,omitempty"`
	Purpose      string     `json:"SitePurpose,omitempty"`
	Created      string     `json:"EUMSiteCreated,omitempty"`
	SiteTemplate *LookupRef `json:"EUMSiteTemplate,omitempty"`
}

// Division is a provisioning division record from the Divisions list.
// Prefix, when set, is prepended to generated titles and aliases.
type Division struct {
	ID     int    `json:"Id"`
	Title  string `json:"Title"`
	Prefix string `json:"Prefix,omitempty"`
}

// SiteTemplate describes one provisioning template from the SiteTemplates
// list, including the content type whose fields drive the request form and
// the defaults for the group-creation toggles.
type SiteTemplate struct {
	ID              int    `json:"Id"`
	Title           string `json:"Title"`
	DivisionIDs     []int  `json:"DivisionIds,omitempty"`
	ContentTypeName string `json:"ContentTypeName"`
	Office365Group  bool   `json:"Office365Group"`

	SiteVisibilityDefaultValue string `json:"SiteVisibilityDefaultValue,omitempty"`
	SiteVisibilityShowChoice   bool   `json:"SiteVisibilityShowChoice"`
	CreateTeamDefaultValue     bool   `json:"CreateTeamDefaultValue"`
	CreateTeamShowToggle       bool   `json:"CreateTeamShowToggle"`
	CreateOneNoteDefaultValue  bool   `json:"CreateOneNoteDefaultValue"`
	CreateOneNoteShowToggle    bool   `json:"CreateOneNoteShowToggle"`
	CreatePlannerDefaultValue  bool   `json:"CreatePlannerDefaultValue"`
	CreatePlannerShowToggle    bool   `json:"CreatePlannerShowToggle"`
}

// Form field type tags as supplied by content type metadata. These are the
// UI-facing tags the client codec branches on; they are distinct from the
// write-side FieldType tags.
const (
	FormFieldText          = "Text"
	FormFieldNote          = "Note"
	FormFieldHTML          = "HTML"
	FormFieldURL           = "URL"
	FormFieldBoolean       = "Boolean"
	FormFieldChoice        = "Choice"
	FormFieldMultiChoice   = "MultiChoice"
	FormFieldNumber        = "Number"
	FormFieldCurrency      = "Currency"
	FormFieldDateTime      = "DateTime"
	FormFieldUser          = "User"
	FormFieldUserMulti     = "UserMulti"
	FormFieldTaxonomy      = "TaxonomyFieldType"
	FormFieldTaxonomyMulti = "TaxonomyFieldTypeMulti"
	FormFieldLookup        = "Lookup"
	FormFieldLookupMulti   = "LookupMulti"
)

// ContentTypeField is the metadata for one form field of a content type.
type ContentTypeField struct {
	InternalName string   `json:"InternalName"`
	Title        string   `json:"Title"`
	Description  string   `json:"Description,omitempty"`
	Type         string   `json:"TypeAsString"`
	Required     bool     `json:"Required"`
	Hidden       bool     `json:"Hidden"`
	DefaultValue string   `json:"DefaultValue,omitempty"`
	Choices      []string `json:"Choices,omitempty"`
	TermSetID    string   `json:"TermSetId,omitempty"`
	LookupList   string   `json:"LookupList,omitempty"`
	LookupField  string   `json:"LookupField,omitempty"`
}

// ContentType is the schema describing which fields a record template exposes.
type ContentType struct {
	ID     string             `json:"Id"`
	Name   string             `json:"Name"`
	Fields []ContentTypeField `json:"Fields"`
}

// User is a resolved store user, created on demand by EnsureUser.
type User struct {
	ID       int    `json:"Id"`
	Username string `json:"Username"`
}

// Term is one selection from the term vocabulary as captured by the form.
type Term struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}
