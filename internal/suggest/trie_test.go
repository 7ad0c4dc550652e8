package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrie_PrefixCorrectness(t *testing.T) {
	tr := New(2, 32, 20)
	tr.Insert("login_test", Item{ExecutionID: "1", Name: "login_test"})
	tr.Insert("login_validation", Item{ExecutionID: "2", Name: "login_validation"})
	tr.Insert("logout_test", Item{ExecutionID: "3", Name: "logout_test"})
	tr.Insert("other", Item{ExecutionID: "4", Name: "other"})

	got := tr.Search("log")
	names := namesOf(got)
	assert.ElementsMatch(t, []string{"login_test", "login_validation", "logout_test"}, names)
	assert.NotContains(t, names, "other")
}

func TestTrie_EmptyOrShortQueryReturnsEmpty(t *testing.T) {
	tr := New(2, 32, 20)
	tr.Insert("login_test", Item{ExecutionID: "1", Name: "login_test"})

	assert.Empty(t, tr.Search(""))
	assert.Empty(t, tr.Search("l"))
}

func TestTrie_CaseFolded(t *testing.T) {
	tr := New(2, 32, 20)
	tr.Insert("Login_Test", Item{ExecutionID: "1", Name: "Login_Test"})

	got := tr.Search("LOG")
	assert.Len(t, got, 1)
	assert.Equal(t, "Login_Test", got[0].Name)
}

func TestTrie_MaxCandidatesBound(t *testing.T) {
	tr := New(2, 32, 2)
	tr.Insert("aa1", Item{ExecutionID: "1", Name: "aa1"})
	tr.Insert("aa2", Item{ExecutionID: "2", Name: "aa2"})
	tr.Insert("aa3", Item{ExecutionID: "3", Name: "aa3"})

	got := tr.Search("aa")
	assert.Len(t, got, 2)
}

func TestTrie_NoDuplicateCandidates(t *testing.T) {
	tr := New(2, 32, 20)
	item := Item{ExecutionID: "1", Name: "login_test"}
	tr.Insert("login_test", item)
	tr.Insert("login_test", item)

	got := tr.Search("log")
	assert.Len(t, got, 1)
}

func TestTrie_NameBelowMinQueryLenIgnored(t *testing.T) {
	tr := New(3, 32, 20)
	tr.Insert("ab", Item{ExecutionID: "1", Name: "ab"})

	assert.Empty(t, tr.Search("ab"))
}

func TestTrie_MaxQueryLenCapsIndexDepth(t *testing.T) {
	tr := New(2, 4, 20)
	tr.Insert("abcdef", Item{ExecutionID: "1", Name: "abcdef"})

	assert.NotEmpty(t, tr.Search("abcd"))
	assert.Empty(t, tr.Search("abcde"))
}

func namesOf(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
