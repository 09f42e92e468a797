package a

import "regexp"

func bad(names []string) {
	for _, name := range names {
		re := regexp.MustCompile(`\{\{(\w+)\}\}`) // want "regexp.MustCompile called inside loop"
		_ = re.FindAllString(name, -1)
	}
}

func badCompile(names []string) {
	for _, name := range names {
		re, _ := regexp.Compile(`\{\{(\w+)\}\}`) // want "regexp.Compile called inside loop"
		_ = re.FindAllString(name, -1)
	}
}

func badPOSIX(names []string) {
	for i := 0; i < len(names); i++ {
		re := regexp.MustCompilePOSIX(`[a-z]+`) // want "regexp.MustCompilePOSIX called inside loop"
		_ = re.MatchString(names[i])
	}
}

func good(names []string) {
	re := regexp.MustCompile(`\{\{(\w+)\}\}`)
	for _, name := range names {
		_ = re.FindAllString(name, -1)
	}
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

func goodGlobal(names []string) {
	for _, name := range names {
		_ = placeholderRe.FindAllString(name, -1)
	}
}
