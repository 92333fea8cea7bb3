package facetset

// LinkType describes what clicking a choice does.
type LinkType string

const (
	// LinkAdd applies a new selection.
	LinkAdd LinkType = "add"
	// LinkRemove undoes an existing selection.
	LinkRemove LinkType = "remove"
	// LinkDisplay shows non-actionable context (no link).
	LinkDisplay LinkType = "display"
)

// Choice is a single selectable (or displayed) option within a facet.
//
// ADD choices carry a result count unless the field was configured with
// show_counts=false; REMOVE and DISPLAY choices never do. Params is the full
// query-string state that selecting the choice would produce; it is zero for
// DISPLAY choices.
type Choice struct {
	Label    string
	Link     LinkType
	Count    int
	HasCount bool
	Params   Params
}

func addChoice(label string, count int, showCount bool, params Params) Choice {
	return Choice{
		Label:    label,
		Link:     LinkAdd,
		Count:    count,
		HasCount: showCount,
		Params:   params,
	}
}

func removeChoice(label string, params Params) Choice {
	return Choice{Label: label, Link: LinkRemove, Params: params}
}

func displayChoice(label string) Choice {
	return Choice{Label: label, Link: LinkDisplay}
}
