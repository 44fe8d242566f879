package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// fakeSource is an in-memory MetadataSource with per-call failure switches.
type fakeSource struct {
	blacklist []string
	divisions []domain.Division
	templates map[int][]domain.SiteTemplate
	fields    map[string][]domain.ContentTypeField
	taken     map[string]bool

	failBlacklist bool
	failAlias     bool
	aliasCalls    int
	onCheckAlias  func()
}

func (f *fakeSource) Blacklist(context.Context) ([]string, error) {
	if f.failBlacklist {
		return nil, errors.New("blacklist unavailable")
	}
	return f.blacklist, nil
}

func (f *fakeSource) Divisions(context.Context) ([]domain.Division, error) {
	return f.divisions, nil
}

func (f *fakeSource) SiteTemplates(_ context.Context, divisionID int) ([]domain.SiteTemplate, error) {
	return f.templates[divisionID], nil
}

func (f *fakeSource) ContentTypeFields(_ context.Context, name string, _ bool) ([]domain.ContentTypeField, error) {
	return f.fields[name], nil
}

func (f *fakeSource) CheckAlias(_ context.Context, alias string) (bool, error) {
	f.aliasCalls++
	if f.onCheckAlias != nil {
		f.onCheckAlias()
	}
	if f.failAlias {
		return false, errors.New("alias check unavailable")
	}
	return !f.taken[alias], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		blacklist: []string{"forbidden"},
		divisions: []domain.Division{{ID: 1, Title: "Finance"}, {ID: 2, Title: "HR"}},
		templates: map[int][]domain.SiteTemplate{
			1: {{ID: 10, Title: "Team Site", ContentTypeName: "EUM Site Request", Office365Group: true, SiteVisibilityDefaultValue: "Private"}},
			2: {{ID: 20, Title: "Project Site", ContentTypeName: "EUM Site Request"}},
		},
		fields: map[string][]domain.ContentTypeField{
			"EUM Site Request": {
				{InternalName: domain.FieldTitle, Title: "Title", Type: domain.FormFieldText, Required: true},
				{InternalName: domain.FieldAlias, Title: "Alias", Type: domain.FormFieldText},
			},
		},
		taken: map[string]bool{"finance-team": true},
	}
}

// capturingSubmit records the wire map handed to it.
type capturingSubmit struct {
	fields map[string]any
	err    error
	calls  int
}

func (c *capturingSubmit) submit(_ context.Context, fields map[string]any) error {
	c.calls++
	c.fields = fields
	return c.err
}

func readySession(t *testing.T, source *fakeSource, sink *capturingSubmit) *FormSession {
	t.Helper()
	session := NewFormSession(source, APIShapeEncoder{}, sink.submit)
	require.NoError(t, session.Begin(context.Background()))
	require.NoError(t, session.SelectDivision(context.Background(), 1))
	require.NoError(t, session.SelectTemplate(context.Background(), 10))
	require.Equal(t, StateReady, session.State())
	return session
}

func TestFormSessionLifecycle(t *testing.T) {
	source := newFakeSource()
	sink := &capturingSubmit{}
	session := NewFormSession(source, APIShapeEncoder{}, sink.submit)

	assert.Equal(t, StateLoading, session.State())

	require.NoError(t, session.Begin(context.Background()))
	assert.Equal(t, StateDivisionsLoaded, session.State())
	assert.Len(t, session.Divisions(), 2)

	require.NoError(t, session.SelectDivision(context.Background(), 1))
	assert.Equal(t, StateSiteTemplatesLoaded, session.State())
	assert.Len(t, session.SiteTemplates(), 1)

	require.NoError(t, session.SelectTemplate(context.Background(), 10))
	assert.Equal(t, StateReady, session.State())
	assert.Len(t, session.FormFields(), 2)

	require.NoError(t, session.SetText(domain.FieldTitle, "Quarterly Planning"))
	require.NoError(t, session.Submit(context.Background()))

	assert.Equal(t, StateSuccess, session.State())
	assert.Equal(t, 1, sink.calls)
}

func TestFormSessionOrderEnforced(t *testing.T) {
	source := newFakeSource()
	session := NewFormSession(source, APIShapeEncoder{}, (&capturingSubmit{}).submit)

	assert.Error(t, session.SelectDivision(context.Background(), 1))
	assert.Error(t, session.SelectTemplate(context.Background(), 10))
	assert.Error(t, session.SetText(domain.FieldTitle, "too early"))
	assert.Error(t, session.Submit(context.Background()))

	require.NoError(t, session.Begin(context.Background()))
	assert.Error(t, session.Begin(context.Background()), "begin is not re-entrant")
	assert.Error(t, session.SelectTemplate(context.Background(), 10), "template before division")
}

func TestFormSessionSeedsTemplateDefaults(t *testing.T) {
	source := newFakeSource()
	session := readySession(t, source, &capturingSubmit{})

	pending := session.PendingValues()
	assert.Equal(t, map[string]any{"value": "10", "type": "Lookup"}, pending[domain.FieldSiteTemplate])
	assert.Equal(t, map[string]any{"value": "1", "type": "Lookup"}, pending[domain.FieldDivision])
	assert.Equal(t, "Private", pending[domain.FieldSiteVisibility])
	assert.Equal(t, "false", pending[domain.FieldCreateTeam])
}

func TestFormSessionLastWriteWins(t *testing.T) {
	session := readySession(t, newFakeSource(), &capturingSubmit{})

	require.NoError(t, session.SetText(domain.FieldTitle, "First"))
	require.NoError(t, session.SetText(domain.FieldTitle, "Second"))

	assert.Equal(t, "Second", session.PendingValues()[domain.FieldTitle])
}

func TestFormSessionReselectingDivisionDiscardsCaptures(t *testing.T) {
	source := newFakeSource()
	session := readySession(t, source, &capturingSubmit{})
	require.NoError(t, session.SetText(domain.FieldTitle, "Old Division Title"))

	require.NoError(t, session.SelectDivision(context.Background(), 2))

	assert.Equal(t, StateSiteTemplatesLoaded, session.State())
	assert.Empty(t, session.PendingValues())
	assert.Empty(t, session.FormFields())
}

func TestFormSessionSubmitRequiresFields(t *testing.T) {
	sink := &capturingSubmit{}
	session := readySession(t, newFakeSource(), sink)

	err := session.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateReady, session.State(), "validation failure keeps the session editable")
	assert.Equal(t, 0, sink.calls, "nothing is sent when validation fails")
	assert.Contains(t, session.FieldErrors(), domain.FieldTitle)
}

func TestFormSessionSeededLookupSatisfiesRequired(t *testing.T) {
	source := newFakeSource()
	source.fields["EUM Site Request"] = []domain.ContentTypeField{
		{InternalName: domain.FieldTitle, Title: "Title", Type: domain.FormFieldText, Required: true},
		{InternalName: domain.FieldDivision, Title: "Division", Type: domain.FormFieldLookup, Required: true},
	}
	sink := &capturingSubmit{}
	session := readySession(t, source, sink)
	require.NoError(t, session.SetText(domain.FieldTitle, "Quarterly Planning"))

	// The division lookup was seeded on selection, never captured as text;
	// it still satisfies the required check.
	require.NoError(t, session.Submit(context.Background()))

	assert.Equal(t, StateSuccess, session.State())
	assert.Contains(t, sink.fields, domain.FieldDivision)
}

func TestFormSessionBlankCaptureStillRequired(t *testing.T) {
	sink := &capturingSubmit{}
	session := readySession(t, newFakeSource(), sink)
	require.NoError(t, session.SetText(domain.FieldTitle, ""))

	require.Error(t, session.Submit(context.Background()))
	assert.Contains(t, session.FieldErrors(), domain.FieldTitle)
	assert.Equal(t, 0, sink.calls)
}

func TestFormSessionSubmitBlocksBlacklistedTitle(t *testing.T) {
	sink := &capturingSubmit{}
	session := readySession(t, newFakeSource(), sink)
	require.NoError(t, session.SetText(domain.FieldTitle, "the forbidden site"))

	err := session.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateReady, session.State())
	assert.Equal(t, 0, sink.calls)
	assert.Contains(t, session.FieldErrors()[domain.FieldTitle], "forbidden")
}

func TestFormSessionSubmitFailureNeedsReset(t *testing.T) {
	sink := &capturingSubmit{err: errors.New("store unavailable")}
	session := readySession(t, newFakeSource(), sink)
	require.NoError(t, session.SetText(domain.FieldTitle, "Quarterly Planning"))

	require.Error(t, session.Submit(context.Background()))
	assert.Equal(t, StateError, session.State())
	assert.Error(t, session.Err())

	assert.Error(t, session.Submit(context.Background()), "no resubmit without reset")
	assert.Error(t, session.SetText(domain.FieldTitle, "edit after failure"))

	session.Reset()
	assert.Equal(t, StateLoading, session.State())
	assert.NoError(t, session.Err())
	assert.Empty(t, session.PendingValues())
}

func TestFormSessionBeginFailureMovesToError(t *testing.T) {
	source := newFakeSource()
	source.failBlacklist = true
	session := NewFormSession(source, APIShapeEncoder{}, (&capturingSubmit{}).submit)

	require.Error(t, session.Begin(context.Background()))
	assert.Equal(t, StateError, session.State())
}

func TestFormSessionCheckBlacklist(t *testing.T) {
	session := readySession(t, newFakeSource(), &capturingSubmit{})

	msg := session.CheckBlacklist(domain.FieldTitle, "a forbidden title")
	assert.Contains(t, msg, "forbidden")
	assert.Contains(t, session.FieldErrors(), domain.FieldTitle)

	assert.Empty(t, session.CheckBlacklist(domain.FieldTitle, "a clean title"))
	assert.NotContains(t, session.FieldErrors(), domain.FieldTitle)
}

func TestFormSessionValidateAlias(t *testing.T) {
	source := newFakeSource()
	session := readySession(t, source, &capturingSubmit{})

	require.NoError(t, session.ValidateAlias(context.Background(), domain.FieldAlias, "finance-team"))
	assert.Contains(t, session.FieldErrors()[domain.FieldAlias], "already in use")

	require.NoError(t, session.ValidateAlias(context.Background(), domain.FieldAlias, "fresh-alias"))
	assert.NotContains(t, session.FieldErrors(), domain.FieldAlias)
}

func TestFormSessionStaleAliasResultDropped(t *testing.T) {
	source := newFakeSource()
	session := readySession(t, source, &capturingSubmit{})

	// While the first check is in flight, a later validation starts and
	// bumps the sequence, making the first result stale on arrival.
	source.onCheckAlias = func() {
		session.mu.Lock()
		session.valSeq[domain.FieldAlias]++
		session.mu.Unlock()
	}

	require.NoError(t, session.ValidateAlias(context.Background(), domain.FieldAlias, "finance-team"))

	// The taken-alias error is dropped because a newer validation owns the
	// field now.
	assert.NotContains(t, session.FieldErrors(), domain.FieldAlias)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Ready", StateReady.String())
	assert.Equal(t, "State(99)", State(99).String())
}
