package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/errors"
)

// State is the form session lifecycle state.
type State int

// Session states, in lifecycle order. Error is reachable from any loading or
// saving state; re-entry after Error or Success only happens through Reset.
const (
	StateLoading State = iota
	StateBlacklistLoaded
	StateDivisionsLoaded
	StateSiteTemplatesLoaded
	StateFieldsLoaded
	StateReady
	StateSaving
	StateSuccess
	StateError
)

var stateNames = map[State]string{
	StateLoading:             "Loading",
	StateBlacklistLoaded:     "BlacklistLoaded",
	StateDivisionsLoaded:     "DivisionsLoaded",
	StateSiteTemplatesLoaded: "SiteTemplatesLoaded",
	StateFieldsLoaded:        "FieldsLoaded",
	StateReady:               "Ready",
	StateSaving:              "Saving",
	StateSuccess:             "Success",
	StateError:               "Error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MetadataSource supplies the form-driving metadata: the phrase blacklist,
// divisions, site templates, content type fields, and alias availability.
type MetadataSource interface {
	Blacklist(ctx context.Context) ([]string, error)
	Divisions(ctx context.Context) ([]domain.Division, error)
	SiteTemplates(ctx context.Context, divisionID int) ([]domain.SiteTemplate, error)
	ContentTypeFields(ctx context.Context, name string, office365Group bool) ([]domain.ContentTypeField, error)
	CheckAlias(ctx context.Context, alias string) (bool, error)
}

// SubmitFunc sends the accumulated wire-shaped fields to their destination.
type SubmitFunc func(ctx context.Context, fields map[string]any) error

// FormSession owns one provisioning request form: the pending field value
// accumulator, the lifecycle state machine, and pre-submission validation.
// All methods are safe for concurrent use; field captures are serialized by
// the session mutex so last-write-wins upserts never lose updates.
type FormSession struct {
	mu sync.Mutex

	source  MetadataSource
	encoder FieldEncoder
	submit  SubmitFunc

	state   State
	lastErr error

	blacklist *BlacklistChecker
	divisions []domain.Division
	templates []domain.SiteTemplate

	selectedDivision int
	selectedTemplate *domain.SiteTemplate
	formFields       []domain.ContentTypeField

	// pending accumulates encoded field values keyed by field internal
	// name. Saving the same field again replaces its entry.
	pending map[string]EncodedField
	// rawText keeps the raw text of captured scalar fields for required
	// and blacklist validation.
	rawText map[string]string

	fieldErrors map[string]string
	// valSeq guards async validations: a result only lands if no later
	// validation has started for the same field.
	valSeq map[string]uint64
}

// NewFormSession creates a form session with an explicit encoder and submit
// path. Most callers use Client.NewFormSession, which selects both from
// configuration.
func NewFormSession(source MetadataSource, encoder FieldEncoder, submit SubmitFunc) *FormSession {
	return &FormSession{
		source:      source,
		encoder:     encoder,
		submit:      submit,
		state:       StateLoading,
		pending:     make(map[string]EncodedField),
		rawText:     make(map[string]string),
		fieldErrors: make(map[string]string),
		valSeq:      make(map[string]uint64),
	}
}

// State returns the current lifecycle state.
func (s *FormSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session into StateError, if any.
func (s *FormSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Divisions returns the loaded divisions.
func (s *FormSession) Divisions() []domain.Division {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.divisions
}

// SiteTemplates returns the templates loaded for the selected division.
func (s *FormSession) SiteTemplates() []domain.SiteTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templates
}

// FormFields returns the content type fields driving the form.
func (s *FormSession) FormFields() []domain.ContentTypeField {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formFields
}

// FieldErrors returns a copy of the current per-field validation errors.
func (s *FormSession) FieldErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		out[k] = v
	}
	return out
}

// PendingValues returns the wire-shaped field map as it would be submitted.
func (s *FormSession) PendingValues() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wireMapLocked()
}

func (s *FormSession) wireMapLocked() map[string]any {
	wire := make(map[string]any, len(s.pending))
	for _, field := range s.pending {
		wire[field.Key] = field.Value
	}
	return wire
}

func (s *FormSession) fail(err error) error {
	s.state = StateError
	s.lastErr = err
	return err
}

// Begin loads the blacklist and divisions, advancing
// Loading → BlacklistLoaded → DivisionsLoaded.
func (s *FormSession) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return errors.Validation(fmt.Sprintf("cannot begin from state %s", s.state))
	}

	phrases, err := s.source.Blacklist(ctx)
	if err != nil {
		return s.fail(err)
	}
	s.blacklist = NewBlacklistChecker(phrases)
	s.state = StateBlacklistLoaded

	divisions, err := s.source.Divisions(ctx)
	if err != nil {
		return s.fail(err)
	}
	s.divisions = divisions
	s.state = StateDivisionsLoaded

	return nil
}

// SelectDivision loads the site templates available to the division,
// advancing to SiteTemplatesLoaded. Re-selection is allowed until saving
// starts; it discards any previously selected template and captured fields.
func (s *FormSession) SelectDivision(ctx context.Context, divisionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state < StateDivisionsLoaded || s.state >= StateSaving {
		return errors.Validation(fmt.Sprintf("cannot select division in state %s", s.state))
	}

	templates, err := s.source.SiteTemplates(ctx, divisionID)
	if err != nil {
		return s.fail(err)
	}

	s.selectedDivision = divisionID
	s.templates = templates
	s.selectedTemplate = nil
	s.formFields = nil
	clear(s.pending)
	clear(s.rawText)
	clear(s.fieldErrors)
	s.state = StateSiteTemplatesLoaded

	return nil
}

// SelectTemplate loads the content type fields for the template, seeds the
// template's field defaults, and advances through FieldsLoaded to Ready.
func (s *FormSession) SelectTemplate(ctx context.Context, templateID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state < StateSiteTemplatesLoaded || s.state >= StateSaving {
		return errors.Validation(fmt.Sprintf("cannot select template in state %s", s.state))
	}

	var template *domain.SiteTemplate
	for i := range s.templates {
		if s.templates[i].ID == templateID {
			template = &s.templates[i]
			break
		}
	}
	if template == nil {
		return errors.NotFound(fmt.Sprintf("template %d not available", templateID))
	}

	fields, err := s.source.ContentTypeFields(ctx, template.ContentTypeName, template.Office365Group)
	if err != nil {
		return s.fail(err)
	}

	s.selectedTemplate = template
	s.formFields = fields
	s.state = StateFieldsLoaded

	s.seedTemplateDefaultsLocked(template)
	s.setLocked(domain.FieldSiteTemplate, s.encoder.Lookup(domain.FieldSiteTemplate, fmt.Sprint(template.ID)))
	if s.selectedDivision != 0 {
		s.setLocked(domain.FieldDivision, s.encoder.Lookup(domain.FieldDivision, fmt.Sprint(s.selectedDivision)))
	}

	s.state = StateReady
	return nil
}

// seedTemplateDefaultsLocked applies the template's visibility and toggle
// defaults; hidden toggles keep their default since the form never shows them.
func (s *FormSession) seedTemplateDefaultsLocked(template *domain.SiteTemplate) {
	if template.SiteVisibilityDefaultValue != "" {
		s.setLocked(domain.FieldSiteVisibility, s.encoder.Text(domain.FieldSiteVisibility, template.SiteVisibilityDefaultValue))
	}
	s.setLocked(domain.FieldCreateTeam, s.encoder.Text(domain.FieldCreateTeam, fmt.Sprint(template.CreateTeamDefaultValue)))
	s.setLocked(domain.FieldCreateOneNote, s.encoder.Text(domain.FieldCreateOneNote, fmt.Sprint(template.CreateOneNoteDefaultValue)))
	s.setLocked(domain.FieldCreatePlanner, s.encoder.Text(domain.FieldCreatePlanner, fmt.Sprint(template.CreatePlannerDefaultValue)))
}

// setLocked upserts a pending entry keyed by the field's internal name, so
// the Id-suffix wire key never splits one field into two entries.
func (s *FormSession) setLocked(name string, field EncodedField) {
	s.pending[name] = field
}

// captureAllowedLocked reports whether field captures are valid now.
func (s *FormSession) captureAllowedLocked() bool {
	return s.state == StateFieldsLoaded || s.state == StateReady
}

func (s *FormSession) capture(name string, raw string, field EncodedField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.captureAllowedLocked() {
		return errors.Validation(fmt.Sprintf("cannot capture fields in state %s", s.state))
	}

	// Upsert by internal name: saving the same field again replaces its
	// prior entry.
	s.setLocked(name, field)
	s.rawText[name] = raw
	return nil
}

// SetText captures a scalar text field.
func (s *FormSession) SetText(name, value string) error {
	return s.capture(name, value, s.encoder.Text(name, value))
}

// SetLookup captures a single lookup selection.
func (s *FormSession) SetLookup(name, id string) error {
	return s.capture(name, id, s.encoder.Lookup(name, id))
}

// SetLookupMulti captures a multi-lookup selection.
func (s *FormSession) SetLookupMulti(name string, ids []string) error {
	return s.capture(name, joinRaw(ids), s.encoder.LookupMulti(name, ids))
}

// SetChoiceMulti captures a multi-choice selection.
func (s *FormSession) SetChoiceMulti(name string, choices []string) error {
	return s.capture(name, joinRaw(choices), s.encoder.ChoiceMulti(name, choices))
}

// SetTaxonomy captures a single term selection.
func (s *FormSession) SetTaxonomy(name string, term domain.Term) error {
	return s.capture(name, term.Name, s.encoder.Taxonomy(name, term))
}

// SetTaxonomyMulti captures a multi-term selection.
func (s *FormSession) SetTaxonomyMulti(name string, terms []domain.Term) error {
	return s.capture(name, EncodeTerms(terms), s.encoder.TaxonomyMulti(name, terms))
}

// SetURL captures a URL field.
func (s *FormSession) SetURL(name, url string) error {
	return s.capture(name, url, s.encoder.URL(name, url))
}

// SetPerson captures a single person selection.
func (s *FormSession) SetPerson(name, id string) error {
	return s.capture(name, id, s.encoder.Person(name, id))
}

// SetPersonMulti captures a multi-person selection.
func (s *FormSession) SetPersonMulti(name string, ids []string) error {
	return s.capture(name, joinRaw(ids), s.encoder.PersonMulti(name, ids))
}

func joinRaw(parts []string) string {
	return strings.Join(parts, ",")
}

// CheckBlacklist validates a captured text value against the phrase
// blacklist, recording or clearing the field-level error.
func (s *FormSession) CheckBlacklist(name, value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blacklist == nil {
		return ""
	}
	if phrase := s.blacklist.Check(value); phrase != "" {
		s.fieldErrors[name] = fmt.Sprintf("contains blacklisted phrase %q", phrase)
		return s.fieldErrors[name]
	}
	delete(s.fieldErrors, name)
	return ""
}

// ValidateAlias checks alias availability against the server. Validations
// may overlap with further input; a sequence number per field guarantees a
// stale result never overwrites the outcome of a later call.
func (s *FormSession) ValidateAlias(ctx context.Context, name, alias string) error {
	s.mu.Lock()
	s.valSeq[name]++
	seq := s.valSeq[name]
	s.mu.Unlock()

	available, err := s.source.CheckAlias(ctx, alias)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valSeq[name] != seq {
		// A later validation superseded this one; drop the result.
		return nil
	}

	if err != nil {
		s.fieldErrors[name] = "could not verify alias availability"
		return err
	}
	if !available {
		s.fieldErrors[name] = fmt.Sprintf("alias %q is already in use", alias)
		return nil
	}
	delete(s.fieldErrors, name)
	return nil
}

// Submit validates required fields and blacklist-sensitive fields, then
// sends the accumulated values. Validation failures leave the session Ready
// with per-field errors set and never contact the store. A send failure
// moves the session to Error, preserving the captured values for resubmit
// after Reset.
func (s *FormSession) Submit(ctx context.Context) error {
	s.mu.Lock()

	if s.state != StateReady {
		s.mu.Unlock()
		return errors.Validation(fmt.Sprintf("cannot submit from state %s", s.state))
	}

	s.validateRequiredLocked()
	s.validateBlacklistLocked()

	if len(s.fieldErrors) > 0 {
		details := make(map[string]string, len(s.fieldErrors))
		for k, v := range s.fieldErrors {
			details[k] = v
		}
		s.mu.Unlock()
		return errors.ValidationWithDetails("form has validation errors", details)
	}

	s.state = StateSaving
	wire := s.wireMapLocked()
	s.mu.Unlock()

	err := s.submit(ctx, wire)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		return s.fail(err)
	}
	s.state = StateSuccess
	return nil
}

// validateRequiredLocked checks required fields against the accumulated
// values. A field counts as present when it was captured with non-blank text
// or when an entry was seeded into pending without a capture, as the
// division and template lookups are on selection.
func (s *FormSession) validateRequiredLocked() {
	for _, field := range s.formFields {
		if !field.Required {
			continue
		}
		if raw, captured := s.rawText[field.InternalName]; captured {
			if raw == "" {
				s.fieldErrors[field.InternalName] = "is required"
			}
			continue
		}
		if _, seeded := s.pending[field.InternalName]; seeded {
			continue
		}
		s.fieldErrors[field.InternalName] = "is required"
	}
}

// blacklistSensitive lists the fields whose text runs through the phrase
// blacklist before submission.
var blacklistSensitive = []string{
	domain.FieldTitle,
	domain.FieldAlias,
	domain.FieldSiteURL,
}

func (s *FormSession) validateBlacklistLocked() {
	if s.blacklist == nil {
		return
	}
	for _, name := range blacklistSensitive {
		raw, captured := s.rawText[name]
		if !captured || raw == "" {
			continue
		}
		if phrase := s.blacklist.Check(raw); phrase != "" {
			s.fieldErrors[name] = fmt.Sprintf("contains blacklisted phrase %q", phrase)
		}
	}
}

// Reset clears all accumulated state and returns the session to Loading.
// This is the only path out of Success or Error.
func (s *FormSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateLoading
	s.lastErr = nil
	s.blacklist = nil
	s.divisions = nil
	s.templates = nil
	s.selectedDivision = 0
	s.selectedTemplate = nil
	s.formFields = nil
	clear(s.pending)
	clear(s.rawText)
	clear(s.fieldErrors)
	clear(s.valSeq)
}
