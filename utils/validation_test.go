package utils

import "testing"

func TestMinuteOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"18:00", 1080},
		{"23:59", 1439},
		{"9:00", -1},
		{"24:00", -1},
		{"10:60", -1},
		{"1000", -1},
		{"", -1},
	}
	for _, c := range cases {
		if got := MinuteOfDay(c.in); got != c.want {
			t.Errorf("MinuteOfDay(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestValidateDate(t *testing.T) {
	if !ValidateDate("2030-06-03") {
		t.Error("expected 2030-06-03 valid")
	}
	for _, bad := range []string{"2030-13-01", "2030-02-30", "03/06/2030", "2030-6-3", ""} {
		if ValidateDate(bad) {
			t.Errorf("expected %q invalid", bad)
		}
	}
}

func TestWeekdayKey(t *testing.T) {
	cases := map[string]string{
		"2030-06-03": "monday",
		"2030-06-07": "friday",
		"2030-06-09": "sunday",
		"not-a-date": "",
	}
	for in, want := range cases {
		if got := WeekdayKey(in); got != want {
			t.Errorf("WeekdayKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateCoordinates(t *testing.T) {
	if !ValidateCoordinates(38.7578, 9.0108) {
		t.Error("expected Addis Ababa coordinates valid")
	}
	if ValidateCoordinates(181, 0) || ValidateCoordinates(0, -91) {
		t.Error("expected out-of-range coordinates invalid")
	}
}

func TestValidatePhone(t *testing.T) {
	if !ValidatePhone("+251911234567") {
		t.Error("expected international number valid")
	}
	if ValidatePhone("abc") {
		t.Error("expected letters invalid")
	}
}
