package memory

import "testing"

func TestEncodeQueryDeterministicAndSorted(t *testing.T) {
	v1 := encodeQuery("Jurisdiction may not be ADGM")
	v2 := encodeQuery("Jurisdiction may not be ADGM")
	if len(v1.Indices) != len(v2.Indices) {
		t.Fatalf("vector sizes mismatch: %d vs %d", len(v1.Indices), len(v2.Indices))
	}
	for i := range v1.Indices {
		if v1.Indices[i] != v2.Indices[i] || v1.Values[i] != v2.Values[i] {
			t.Fatalf("mismatch at %d", i)
		}
		if i > 0 && v1.Indices[i-1] > v1.Indices[i] {
			t.Fatalf("indices not sorted at %d", i)
		}
	}
}

func TestEncodeQueryEmptyNoiseInput(t *testing.T) {
	v := encodeQuery("___---!!! the of")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
}

func TestTokenizeKeepsUnicodeLettersAndDigits(t *testing.T) {
	tokens := tokenize("Clause 3.1 — محكمة ADGM_Courts")
	want := []string{"clause", "3", "1", "محكمة", "adgm", "courts"}
	if len(tokens) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("tokenize()[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestDotRewardsSharedTerms(t *testing.T) {
	doc := encodeDocument("ADGM Courts have jurisdiction over companies", "refs/courts.pdf")
	related := encodeQuery("ADGM Courts jurisdiction")
	unrelated := encodeQuery("beneficial ownership register")
	if dot(doc, related) <= 0 {
		t.Fatalf("expected positive score for related query")
	}
	if dot(doc, unrelated) != 0 {
		t.Fatalf("expected zero score for unrelated query")
	}
}

func TestEncodeDocumentBoostsPathTerms(t *testing.T) {
	withPath := encodeDocument("text", "refs/ubo_guidance.html")
	plain := encodeDocument("text", "")
	q := encodeQuery("ubo guidance")
	if dot(withPath, q) <= dot(plain, q) {
		t.Fatalf("expected path terms to contribute to score")
	}
}
