package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
)

func TestApplyPatch_OnlyPatchedFieldsChange(t *testing.T) {
	p := Project{ID: "p1", Title: "Old", Description: "keep", Team: []string{"a"}}
	fields, err := ApplyPatch(&p, []byte(`{"title":"New","techStack":["go"]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"techStack", "title"}, fields)
	require.Equal(t, "New", p.Title)
	require.Equal(t, "keep", p.Description)
	require.Equal(t, []string{"a"}, p.Team)
	require.Equal(t, []string{"go"}, p.TechStack)
}

func TestApplyPatch_ProtectedKeysIgnored(t *testing.T) {
	p := Project{ID: "p1", Title: "T"}
	fields, err := ApplyPatch(&p, []byte(`{"id":"p2","createdAt":"2020-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	require.Empty(t, fields)
	require.Equal(t, "p1", p.ID)
	require.True(t, p.CreatedAt.IsZero())
}

func TestApplyPatch_Rejects(t *testing.T) {
	for _, body := range []string{
		`{"nope":1}`,
		`{"progress":"high"}`,
		`{"team":"not-a-list"}`,
		`[1,2]`,
		`null`,
		`{`,
	} {
		p := Project{ID: "p1", Title: "T"}
		_, err := ApplyPatch(&p, []byte(body))
		require.Error(t, err, body)
		require.Equal(t, apperr.Validation, apperr.KindOf(err), body)
		require.Equal(t, "T", p.Title, "dst untouched on %s", body)
	}
}

func TestApplyPatch_NestedStudy(t *testing.T) {
	s := Study{Header: StudyHeader{Title: "Algo", Icon: "book"}}
	_, err := ApplyPatch(&s, []byte(`{"header":{"title":"Algorithms"},"weeklyStudies":[{"week":1,"date":"3/4","href":"x"}]}`))
	require.NoError(t, err)
	require.Equal(t, "Algorithms", s.Header.Title)
	require.Equal(t, "book", s.Header.Icon)
	require.Len(t, s.WeeklyStudies, 1)
	require.Equal(t, 1, s.WeeklyStudies[0].Week)
}

func TestNormalizeDefaults(t *testing.T) {
	p := Project{Title: "x"}
	p.Normalize()
	require.Equal(t, ProjectStatusDefault, p.Status)
	require.NotNil(t, p.Team)
	require.NotNil(t, p.Challenges)

	r := RegularStudy{Title: "y"}
	r.Normalize()
	require.Equal(t, RegularStudyStatusDefault, r.Status)
	require.NotNil(t, r.Category)

	require.ErrorIs(t, (&Project{}).Validate(), ErrTitleRequired)
	require.ErrorIs(t, (&Project{Title: "t", Progress: 120}).Validate(), ErrInvalidProgress)
	require.ErrorIs(t, (&RegularStudy{Title: "t", Team: -1}).Validate(), ErrInvalidTeamSize)
}

func TestApplyPatch_KeysMustMatchExactly(t *testing.T) {
	for _, body := range []string{`{"Title":"New"}`, `{"TITLE":"New"}`, `{"techstack":["go"]}`, `{"ID":"p2"}`} {
		p := Project{ID: "p1", Title: "Old"}
		fields, err := ApplyPatch(&p, []byte(body))
		require.Error(t, err, body)
		require.Equal(t, apperr.Validation, apperr.KindOf(err), body)
		require.Nil(t, fields)
		require.Equal(t, "Old", p.Title, body)
		require.Equal(t, "p1", p.ID, body)
	}
}

func TestApplyPatch_FieldsAreStoredNames(t *testing.T) {
	p := RegularStudy{ID: "r1", Title: "T"}
	fields, err := ApplyPatch(&p, []byte(`{"startDate":"2025-03-01","team":4}`))
	require.NoError(t, err)
	require.Equal(t, []string{"startDate", "team"}, fields)
	require.Equal(t, 4, p.Team)
}
