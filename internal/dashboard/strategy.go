package dashboard

import (
	"sort"
	"strconv"
	"strings"

	"github.com/newthinker/quantview/internal/core"
)

// StrategyOption is one entry of the strategy picker.
type StrategyOption struct {
	ID       int
	Name     string
	Selected bool
}

// StrategyParam is a humanised parameter line.
type StrategyParam struct {
	Key   string
	Label string
	Value string
}

// StrategyDetail describes the selected strategy.
type StrategyDetail struct {
	ID          int
	Name        string
	Description string
	Params      []StrategyParam
}

// Selector is the strategy picker view model.
type Selector struct {
	Options  []StrategyOption
	Detail   *StrategyDetail
	Selected bool
}

var keyReplacer = strings.NewReplacer("_", " ", "-", " ")

// NewSelector builds the picker for strategies with the given selection.
// Any id present in strategies is acceptable; an id that is not present
// renders no detail block.
func NewSelector(strategies []core.Strategy, selected *int) Selector {
	sel := Selector{Options: make([]StrategyOption, 0, len(strategies))}
	for _, s := range strategies {
		isSel := selected != nil && *selected == s.ID
		sel.Options = append(sel.Options, StrategyOption{ID: s.ID, Name: s.Name, Selected: isSel})
		if isSel && sel.Detail == nil {
			sel.Detail = newDetail(s)
			sel.Selected = true
		}
	}
	return sel
}

func newDetail(s core.Strategy) *StrategyDetail {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]StrategyParam, 0, len(keys))
	for _, k := range keys {
		params = append(params, StrategyParam{
			Key:   k,
			Label: HumanizeKey(k),
			Value: strconv.FormatFloat(s.Params[k], 'f', -1, 64),
		})
	}
	return &StrategyDetail{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Params:      params,
	}
}

// HumanizeKey replaces separator characters with spaces: short_window -> short window.
func HumanizeKey(key string) string {
	return keyReplacer.Replace(key)
}

// ParseSelection parses a picker value. Empty or non-numeric input means no selection.
func ParseSelection(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &id
}

// FindStrategy looks a strategy up by id.
func FindStrategy(strategies []core.Strategy, id int) (core.Strategy, bool) {
	for _, s := range strategies {
		if s.ID == id {
			return s, true
		}
	}
	return core.Strategy{}, false
}
