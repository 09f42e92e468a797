package a

func bad(elements map[string]int, id string) {
	if elements[id] != 0 {
		process(elements[id]) // want "repeated map lookup"
	}
}

func badWithPointer(elements map[string]*int, id string) {
	if elements[id] != nil {
		use(elements[id]) // want "repeated map lookup"
	}
}

func badLiteralKey(counts map[string]int) {
	if counts["angst"] != 0 {
		process(counts["angst"]) // want "repeated map lookup"
	}
}

func good(elements map[string]int, id string) {
	if v := elements[id]; v != 0 {
		process(v)
	}
}

func goodCommaOk(elements map[string]int, id string) {
	if v, ok := elements[id]; ok {
		process(v)
	}
}

func goodDifferentKeys(elements map[string]int, id1, id2 string) {
	if elements[id1] != 0 {
		process(elements[id2]) // Different keys - OK
	}
}

func goodDifferentLiteralKeys(counts map[string]int) {
	if counts["angst"] != 0 {
		process(counts["fluff"]) // Different keys - OK
	}
}

func process(v int) {}
func use(v *int)    {}
