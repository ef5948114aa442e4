package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regulation-registry/core/internal/ingestion"
	"github.com/regulation-registry/core/internal/rules"
)

func TestFormValue_PresentAndAbsent(t *testing.T) {
	form := map[string][]string{"title": {"EU CBAM"}}
	assert.Equal(t, "EU CBAM", formValue(form, "title"))
	assert.Equal(t, "", formValue(form, "missing"))
}

func TestStatusFromIngestionError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&ingestion.ErrPDFTooLarge{MaxMB: 50}, http.StatusRequestEntityTooLarge},
		{&ingestion.ErrPrimaryAxisMismatch{Stored: "jurisdiction", Provided: "theme"}, http.StatusBadRequest},
		{&rules.MissingFieldsError{Missing: []string{"title"}}, http.StatusBadRequest},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFromIngestionError(c.err))
	}
}
