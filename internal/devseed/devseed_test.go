package devseed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/mocks/memory"
)

type questionSetStore struct {
	*memory.Catalog
	saved   []*model.QuestionSet
	saveErr error
}

func (s *questionSetStore) Save(_ context.Context, qs *model.QuestionSet) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, qs)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_SeedsMissingRecords(t *testing.T) {
	contacts := memory.NewContacts()
	sets := &questionSetStore{Catalog: memory.NewCatalog()}

	require.NoError(t, Run(context.Background(), Stores{Contacts: contacts, QuestionSets: sets}, discardLogger()))

	require.Len(t, sets.saved, 1)
	assert.Equal(t, "demo-wellbeing", sets.saved[0].ID)
	assert.NotEmpty(t, sets.saved[0].Flow)

	c, err := contacts.FindByID(context.Background(), "demo-contact-1")
	require.NoError(t, err)
	assert.Equal(t, "Kim Minji", c.Name)
}

func TestRun_LeavesExistingRecords(t *testing.T) {
	existing := model.Contact{ID: "demo-contact-1", Name: "Kim Minji", Vulnerability: model.Vulnerability{Summary: "merged"}}
	contacts := memory.NewContacts(existing)
	sets := &questionSetStore{Catalog: memory.NewCatalog(model.QuestionSet{ID: "demo-wellbeing", Title: "custom"})}

	require.NoError(t, Run(context.Background(), Stores{Contacts: contacts, QuestionSets: sets}, discardLogger()))

	assert.Empty(t, sets.saved)
	c, err := contacts.FindByID(context.Background(), "demo-contact-1")
	require.NoError(t, err)
	assert.Equal(t, "merged", c.Vulnerability.Summary)
}

func TestRun_ReportsFailures(t *testing.T) {
	sets := &questionSetStore{Catalog: memory.NewCatalog(), saveErr: errors.New("db down")}

	err := Run(context.Background(), Stores{Contacts: memory.NewContacts(), QuestionSets: sets}, discardLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 seed errors")
}
