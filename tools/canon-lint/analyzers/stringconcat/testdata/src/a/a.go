package a

func bad(names []string) string {
	var out string
	for _, name := range names {
		out += name // want "O\\(n²\\) string concatenation in loop"
	}
	return out
}

func badWithSeparator(names []string) string {
	var out string
	for _, name := range names {
		out += name + ", " // want "O\\(n²\\) string concatenation in loop"
	}
	return out
}

func badPlainAssign(names []string) string {
	var out string
	for _, name := range names {
		out = out + name // want "O\\(n²\\) string concatenation in loop"
	}
	return out
}

func good(names []string) string {
	// Integer addition is fine
	var count int
	for range names {
		count += 1
	}
	_ = count
	return ""
}

func goodForLoop() string {
	// Regular for loop with int
	sum := 0
	for i := 0; i < 10; i++ {
		sum += i
	}
	_ = sum
	return ""
}

func goodRebuild(names []string) string {
	// Fresh value each iteration, not self-append
	var out string
	for _, name := range names {
		out = name + "!"
	}
	return out
}
