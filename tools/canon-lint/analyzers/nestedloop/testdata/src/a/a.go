package a

type Element struct {
	ID string
}

type Report struct {
	Elements []Element
}

func bad(elements []Element) {
	for _, a := range elements {
		for _, b := range elements { // want "O\\(n²\\) pattern: nested loop over same collection"
			if a.ID != b.ID {
				_ = a.ID + b.ID
			}
		}
	}
}

func badSelector(r Report) {
	for _, a := range r.Elements {
		for _, b := range r.Elements { // want "O\\(n²\\) pattern: nested loop over same collection"
			_ = a.ID + b.ID
		}
	}
}

func good(elements []Element, others []Element) {
	// Different collections - OK
	for _, a := range elements {
		for _, b := range others {
			_ = a.ID + b.ID
		}
	}
}

func goodSingleLoop(elements []Element) {
	// Single loop - OK
	for _, element := range elements {
		_ = element.ID
	}
}
