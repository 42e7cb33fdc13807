// Package rules holds the stateless checks every write path runs before it
// touches the store. Each check returns a typed error from the core service
// package so callers can map failures without string matching.
package rules

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/R3E-Network/todo_service/internal/app/core/service"
	"github.com/R3E-Network/todo_service/internal/app/domain/todo"
)

const (
	MinTitleLength       = 3
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	DefaultCooldownDays  = 7

	resource = "todo item"
)

// Policy is the configurable part of the rule set. The zero value is not
// useful; start from DefaultPolicy.
type Policy struct {
	ProhibitedWords   []string `yaml:"prohibited_words"`
	ProtectedKeywords []string `yaml:"protected_keywords"`
	CooldownDays      int      `yaml:"delete_cooldown_days"`
}

// DefaultPolicy returns the built-in word lists and a seven day cooldown.
func DefaultPolicy() Policy {
	return Policy{
		ProhibitedWords:   []string{"teste123", "delete", "xxx", "333"},
		ProtectedKeywords: []string{"important", "urgent", "critical"},
		CooldownDays:      DefaultCooldownDays,
	}
}

// Normalize lower-cases and trims the word lists, dropping blanks, and
// restores the default cooldown when it is not positive.
func (p Policy) Normalize() Policy {
	p.ProhibitedWords = normalizeWords(p.ProhibitedWords)
	p.ProtectedKeywords = normalizeWords(p.ProtectedKeywords)
	if p.CooldownDays <= 0 {
		p.CooldownDays = DefaultCooldownDays
	}
	return p
}

// ValidateTitleShape rejects blank titles, titles that are not valid UTF-8
// and titles whose trimmed length falls outside
// [MinTitleLength, MaxTitleLength].
func ValidateTitleShape(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return service.NewValidationError("title", "title required")
	}
	if !utf8.ValidString(trimmed) {
		return service.NewValidationError("title", "title must be valid UTF-8 text")
	}
	if n := len([]rune(trimmed)); n < MinTitleLength || n > MaxTitleLength {
		return service.NewValidationError("title",
			"title must be between "+strconv.Itoa(MinTitleLength)+" and "+strconv.Itoa(MaxTitleLength)+" characters")
	}
	return nil
}

// ValidateDescription bounds the trimmed description length. A nil
// description is valid.
func ValidateDescription(description *string) error {
	if description == nil {
		return nil
	}
	if !utf8.ValidString(*description) {
		return service.NewValidationError("description", "description must be valid UTF-8 text")
	}
	if len([]rune(strings.TrimSpace(*description))) > MaxDescriptionLength {
		return service.NewValidationError("description",
			"description cannot exceed "+strconv.Itoa(MaxDescriptionLength)+" characters")
	}
	return nil
}

// CheckProhibitedWords rejects titles containing any prohibited word,
// compared case-insensitively as a substring.
func (p Policy) CheckProhibitedWords(title string) error {
	if containsAny(title, p.ProhibitedWords) != "" {
		return service.NewValidationError("title", "prohibited word")
	}
	return nil
}

// CheckUniqueTitle rejects title when another item already uses it, ignoring
// case and surrounding whitespace. excludeID skips the item being updated;
// pass 0 on create.
func CheckUniqueTitle(title string, existing []todo.Item, excludeID int64) error {
	want := strings.TrimSpace(title)
	for _, item := range existing {
		if excludeID != 0 && item.ID == excludeID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(item.Title), want) {
			return service.NewConflictError(resource, "", "duplicate title")
		}
	}
	return nil
}

// CheckCompletionTransition enforces that completion is one-way.
func CheckCompletionTransition(current todo.Item, wantComplete bool) error {
	if current.IsComplete && !wantComplete {
		return service.NewConflictError(resource, strconv.FormatInt(current.ID, 10), "cannot un-complete")
	}
	return nil
}

// CheckDeletable runs the delete guards that apply to an existing item, in
// order: completion cooldown, then protected keywords.
func (p Policy) CheckDeletable(item todo.Item, now time.Time) error {
	if err := p.checkCooldown(item, now); err != nil {
		return err
	}
	if containsAny(item.Title, p.ProtectedKeywords) != "" {
		return service.NewConflictError(resource, strconv.FormatInt(item.ID, 10), "protected title")
	}
	return nil
}

func (p Policy) checkCooldown(item todo.Item, now time.Time) error {
	if !item.IsComplete || item.UpdatedAt == nil {
		return nil
	}
	cooldown := p.CooldownDays
	if cooldown <= 0 {
		cooldown = DefaultCooldownDays
	}
	elapsed := ElapsedDays(*item.UpdatedAt, now)
	if elapsed >= cooldown {
		return nil
	}
	return &service.CooldownError{
		Resource:      resource,
		ID:            strconv.FormatInt(item.ID, 10),
		ElapsedDays:   elapsed,
		RemainingDays: cooldown - elapsed,
	}
}

// ElapsedDays returns the number of whole 24h periods between from and now.
// A from in the future counts as zero.
func ElapsedDays(from, now time.Time) int {
	d := now.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func containsAny(s string, words []string) string {
	lower := strings.ToLower(s)
	for _, w := range words {
		w = strings.ToLower(w)
		if w != "" && strings.Contains(lower, w) {
			return w
		}
	}
	return ""
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
