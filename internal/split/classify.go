package split

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/pkg/errors"

	"github.com/mailtide/mailtide/internal/config"
)

// compiledRule is a SplitRule with its regexes compiled once.
type compiledRule struct {
	name         string
	destinations []string
	discard      bool
	sender       []*regexp.Regexp
	recipients   []*regexp.Regexp
	subject      []*regexp.Regexp
	listID       []*regexp.Regexp
}

// RuleClassifier matches message headers against a fixed rule list.
// Every rule is evaluated; destinations accumulate across matches.
type RuleClassifier struct {
	rules []compiledRule
}

// NewRuleClassifier compiles the configured rules.
func NewRuleClassifier(rules []config.SplitRule) (*RuleClassifier, error) {
	c := &RuleClassifier{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		cr := compiledRule{
			name:         rule.Name,
			destinations: rule.Destinations,
			discard:      rule.Discard,
		}
		var err error
		if cr.sender, err = compileAll(rule.SenderRegex); err != nil {
			return nil, errors.Wrapf(err, "rule %q sender_regex", rule.Name)
		}
		if cr.recipients, err = compileAll(rule.RecipientsRegex); err != nil {
			return nil, errors.Wrapf(err, "rule %q recipients_regex", rule.Name)
		}
		if cr.subject, err = compileAll(rule.SubjectRegex); err != nil {
			return nil, errors.Wrapf(err, "rule %q subject_regex", rule.Name)
		}
		if cr.listID, err = compileAll(rule.ListIDRegex); err != nil {
			return nil, errors.Wrapf(err, "rule %q list_id_regex", rule.Name)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}

// Classify parses the header block and returns every destination named
// by a matching rule, deduplicated in rule order. A matched discard
// rule contributes the Discard sentinel.
func (c *RuleClassifier) Classify(raw []byte) ([]string, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, errors.Wrap(err, "parsing message header")
	}

	sender := headerText(entity, "From")
	recipients := strings.TrimSpace(headerText(entity, "To") + "\n" + headerText(entity, "Cc"))
	subject := headerText(entity, "Subject")
	listID := headerText(entity, "List-Id")

	var dests []string
	seen := map[string]bool{}
	add := func(dest string) {
		if !seen[dest] {
			seen[dest] = true
			dests = append(dests, dest)
		}
	}

	for _, rule := range c.rules {
		if !rule.matches(sender, recipients, subject, listID) {
			continue
		}
		if rule.discard {
			add(Discard)
			continue
		}
		for _, dest := range rule.destinations {
			add(dest)
		}
	}
	return dests, nil
}

// matches reports whether any of the rule's patterns hits its header.
// A rule with no patterns at all matches nothing.
func (r *compiledRule) matches(sender, recipients, subject, listID string) bool {
	return anyMatch(r.sender, sender) ||
		anyMatch(r.recipients, recipients) ||
		anyMatch(r.subject, subject) ||
		anyMatch(r.listID, listID)
}

func anyMatch(res []*regexp.Regexp, value string) bool {
	if value == "" {
		return false
	}
	for _, re := range res {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

func headerText(entity *message.Entity, key string) string {
	text, err := entity.Header.Text(key)
	if err != nil {
		return entity.Header.Get(key)
	}
	return text
}
