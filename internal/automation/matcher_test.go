package automation

import (
	"testing"
	"time"

	"social-automator-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTrigger(id int64, keyword string, createdAt time.Time) domain.KeywordTrigger {
	t := domain.KeywordTrigger{Keyword: keyword, IsActive: true}
	t.ID = id
	t.CreatedAt = createdAt
	return t
}

func TestMatch_CaseInsensitiveSubstring(t *testing.T) {
	triggers := []domain.KeywordTrigger{
		makeTrigger(1, "pricing", time.Now()),
	}

	tests := []struct {
		name string
		text string
		hit  bool
	}{
		{"Exact", "pricing", true},
		{"Mixed Case", "What is the PRICING for this?", true},
		{"Substring Inside Word", "repricing strategies", true},
		{"No Occurrence", "love this post", false},
		{"Empty Text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := Match(tt.text, triggers)
			if tt.hit {
				require.Len(t, matches, 1)
				assert.Equal(t, int64(1), matches[0].ID)
			} else {
				assert.Empty(t, matches)
			}
		})
	}
}

func TestMatch_PreservesInputOrder(t *testing.T) {
	oldest := time.Now().Add(-time.Hour)
	triggers := []domain.KeywordTrigger{
		makeTrigger(1, "price", oldest),
		makeTrigger(2, "demo", oldest.Add(time.Minute)),
		makeTrigger(3, "pricing", oldest.Add(2*time.Minute)),
	}

	matches := Match("What's the pricing? Can I get a demo?", triggers)

	require.Len(t, matches, 3)
	assert.Equal(t, int64(1), matches[0].ID)
	assert.Equal(t, int64(2), matches[1].ID)
	assert.Equal(t, int64(3), matches[2].ID)
}

func TestMatch_SkipsBlankKeywords(t *testing.T) {
	triggers := []domain.KeywordTrigger{
		makeTrigger(1, "   ", time.Now()),
		makeTrigger(2, "deal", time.Now()),
	}

	matches := Match("great deal", triggers)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].ID)
}
