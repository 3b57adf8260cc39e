package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
	}{
		{"07700123456", "+447700123456"},
		{"7700123456", "+447700123456"},
		{"+44 7700 123456", "+447700123456"},
		{"447700123456", "+447700123456"},
		{"0044", "+44"}, // degenerate input still gets the prefix
		{"(020) 7946-0321", "+442079460321"},
		{"02079460321", "+442079460321"},
	}
	for _, c := range cases {
		if got := Normalize(c.raw); got != c.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", c.raw, got, c.expected)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"07700123456", "+447700123456", "020 7946 0321", "123"}
	for _, raw := range inputs {
		once := Normalize(raw)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"+447700123456",  // mobile, 10 digits
		"+4477001234567", // mobile, 11 digits
		"+442079460321",  // London area code
		"+442380123456",  // Southampton area code
		"+442476123456",  // Coventry area code
		"+442890123456",  // Northern Ireland area code
		"+442920123456",  // Cardiff area code
		"+441632960321",  // 01xxx geographic
	}
	for _, number := range valid {
		if !IsValid(number) {
			t.Errorf("expected %q to be valid", number)
		}
	}

	invalid := []string{
		"",
		"+447700123",      // too short
		"+44770012345678", // too long
		"+33700123456",    // wrong country
		"447700123456",    // missing plus
		"+443001234567",   // 03 not in the prefix table
		"+449001234567",   // premium-rate prefix rejected
		"+4477001a3456",   // non-digit
	}
	for _, number := range invalid {
		if IsValid(number) {
			t.Errorf("expected %q to be invalid", number)
		}
	}
}

func TestNormalizeThenValidate(t *testing.T) {
	if !IsValid(Normalize("07700 123 456")) {
		t.Error("expected normalized mobile number to validate")
	}
	if IsValid(Normalize("123")) {
		t.Error("expected short junk input to fail validation")
	}
}
