package validation

import (
	"path/filepath"
	"testing"

	"book-recommender/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadValidator(t *testing.T) *Validator {
	t.Helper()
	reg, err := registry.LoadRegistry(filepath.Join("..", "..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	v, err := NewValidator(reg)
	require.NoError(t, err)
	return v
}

func TestNewValidator_CompilesShippedSchemas(t *testing.T) {
	v := loadValidator(t)

	assert.Equal(t, []string{
		"add-favorite", "create-playlist", "list-favorites",
		"recommend-books", "remove-favorite", "search-books",
	}, v.TaskTypes())
}

func TestNewValidator_BadSchema(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{{
		TaskType:    "broken",
		InputSchema: map[string]interface{}{"type": 12},
	}}}

	_, err := NewValidator(reg)

	assert.Error(t, err)
}

func TestValidate_AddFavorite(t *testing.T) {
	v := loadValidator(t)

	tests := []struct {
		name      string
		vars      map[string]interface{}
		wantValid bool
		wantField string
		wantCode  string
	}{
		{
			name: "complete",
			vars: map[string]interface{}{
				"userId": "u1", "bookId": "b1", "title": "The Hobbit",
				"authors": []interface{}{"J.R.R. Tolkien"}, "thumbnail": "http://img/h.jpg",
			},
			wantValid: true,
		},
		{
			name: "missing thumbnail",
			vars: map[string]interface{}{
				"userId": "u1", "bookId": "b1", "title": "The Hobbit",
				"authors": []interface{}{"J.R.R. Tolkien"},
			},
			wantField: "thumbnail",
			wantCode:  "REQUIRED",
		},
		{
			name: "authors not a list",
			vars: map[string]interface{}{
				"userId": "u1", "bookId": "b1", "title": "The Hobbit",
				"authors": "J.R.R. Tolkien", "thumbnail": "http://img/h.jpg",
			},
			wantField: "authors",
			wantCode:  "INVALID_TYPE",
		},
		{
			name: "empty authors",
			vars: map[string]interface{}{
				"userId": "u1", "bookId": "b1", "title": "The Hobbit",
				"authors": []interface{}{}, "thumbnail": "http://img/h.jpg",
			},
			wantField: "authors",
			wantCode:  "ARRAY_MIN_ITEMS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.Validate("add-favorite", tt.vars)
			require.NoError(t, err)

			assert.Equal(t, tt.wantValid, result.Valid, result.Error())
			if tt.wantValid {
				return
			}
			require.True(t, result.HasErrors(tt.wantField), result.Error())
			assert.Equal(t, tt.wantCode, result.GetErrorsForField(tt.wantField)[0].Code)
		})
	}
}

func TestValidate_SearchBooksMaxResults(t *testing.T) {
	v := loadValidator(t)

	ok, err := v.Validate("search-books", map[string]interface{}{"title": "dune", "maxResults": float64(40)})
	require.NoError(t, err)
	assert.True(t, ok.Valid)

	tooMany, err := v.Validate("search-books", map[string]interface{}{"title": "dune", "maxResults": float64(41)})
	require.NoError(t, err)
	assert.False(t, tooMany.Valid)
	assert.True(t, tooMany.HasErrors("maxResults"))
}

func TestValidate_NestedRecommendation(t *testing.T) {
	v := loadValidator(t)

	result, err := v.Validate("create-playlist", map[string]interface{}{
		"userId": "u1",
		"name":   "Weekend",
		"recommendations": []interface{}{
			map[string]interface{}{"book": map[string]interface{}{"title": "no id"}, "score": 0.4},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.GetErrorsForField("recommendations"))
}

func TestValidate_UnknownTaskTypePasses(t *testing.T) {
	v := loadValidator(t)

	result, err := v.Validate("send-email", nil)

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.False(t, v.HasSchema("send-email"))
}

func TestValidate_NilVariablesAgainstRequired(t *testing.T) {
	v := loadValidator(t)

	result, err := v.Validate("list-favorites", nil)

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("userId"))
}

func TestValidateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
		},
	}

	result, err := ValidateInput(map[string]interface{}{"name": 3}, schema)

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"name: Invalid type. Expected: string, given: integer"}, result.GetErrorMessages())
}
