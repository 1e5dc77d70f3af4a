package model

import (
	"testing"
	"time"
)

func TestStationNormalizeIdempotent(t *testing.T) {
	for _, in := range []StationName{"渋谷", "渋谷駅", " 渋谷駅 ", "駅", ""} {
		once := in.Normalize()
		if twice := once.Normalize(); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
	if got := StationName("渋谷駅").Normalize(); got != "渋谷" {
		t.Fatalf("unexpected normalized name %q", got)
	}
	if got := StationName("渋谷").WithSuffix(); got != "渋谷駅" {
		t.Fatalf("unexpected suffixed name %q", got)
	}
	if got := StationName("渋谷駅").WithSuffix(); got != "渋谷駅" {
		t.Fatalf("suffix added twice: %q", got)
	}
}

func TestRemoveStationBothWays(t *testing.T) {
	cases := []struct {
		candidates []StationName
		target     StationName
	}{
		{[]StationName{"渋谷駅", "恵比寿駅"}, "渋谷"},
		{[]StationName{"渋谷駅", "恵比寿駅"}, "渋谷駅"},
		{[]StationName{"渋谷", "恵比寿"}, "渋谷駅"},
		{[]StationName{"渋谷", "恵比寿"}, "渋谷"},
	}
	for _, c := range cases {
		out := RemoveStation(c.candidates, c.target)
		if len(out) != 1 || !out[0].Equal("恵比寿") {
			t.Fatalf("remove %q from %v gave %v", c.target, c.candidates, out)
		}
	}
	in := []StationName{"目黒"}
	if out := RemoveStation(in, "渋谷"); len(out) != 1 || out[0] != "目黒" {
		t.Fatalf("unrelated station removed: %v", out)
	}
}

func TestEstimateStates(t *testing.T) {
	var zero Estimate
	if zero.Available() || zero.Kind() != EstimateUnavailable {
		t.Fatalf("zero estimate should be unavailable")
	}
	if d := Minutes(55).Duration(); d != 55*time.Minute {
		t.Fatalf("duration %v", d)
	}
	if d := AlreadyThere().Duration(); d != 6*time.Second {
		t.Fatalf("already there duration %v", d)
	}
	if Minutes(-1).Minutes() != 0 {
		t.Fatalf("negative minutes not clamped")
	}
	if Unavailable().Duration() != 0 {
		t.Fatalf("unavailable has a duration")
	}
}

func TestScheduleEndMinusStartIsActivity(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	activity := 30 * time.Minute
	for m := 0; m < 24*60; m += 7 {
		now := base.Add(time.Duration(m) * time.Minute)
		for _, est := range []Estimate{Minutes(0), Minutes(55), Minutes(125), AlreadyThere()} {
			s, ok := NewSchedule("u", "渋谷", now, est, activity)
			if !ok {
				t.Fatalf("schedule refused for %v", est)
			}
			if s.End.Sub(s.Start) != activity {
				t.Fatalf("end-start = %v", s.End.Sub(s.Start))
			}
			start, _ := ParseClock(s.StartClock())
			end, _ := ParseClock(s.EndClock())
			if diff := (int(end) - int(start) + 24*60) % (24 * 60); diff != 30 {
				t.Fatalf("clock diff %d for %s-%s", diff, s.StartClock(), s.EndClock())
			}
		}
	}
}

func TestScheduleUnavailable(t *testing.T) {
	if _, ok := NewSchedule("u", "渋谷", time.Now(), Unavailable(), time.Minute); ok {
		t.Fatalf("expected no schedule")
	}
}

func TestScheduleMidnight(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 40, 0, 0, time.UTC)
	s, _ := NewSchedule("u", "渋谷", now, Minutes(15), 30*time.Minute)
	if s.StartClock() != "23:55" || s.EndClock() != "00:25" {
		t.Fatalf("clocks %s %s", s.StartClock(), s.EndClock())
	}
	if !s.CrossesMidnight() {
		t.Fatalf("expected midnight crossing")
	}
	if s.End.Day() != 2 {
		t.Fatalf("end date not carried: %v", s.End)
	}
}

func TestParseTimeWindow(t *testing.T) {
	w, err := ParseTimeWindow("17:00-23:59")
	if err != nil || w != Evening {
		t.Fatalf("parse window %v %v", w, err)
	}
	for _, bad := range []string{"", "17:00", "18:00-17:00", "aa:bb-10:00"} {
		if _, err := ParseTimeWindow(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if w.String() != "17:00-23:59" {
		t.Fatalf("string %s", w.String())
	}
}

func TestJobKey(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	j := TriggerJob{UserID: "u1", Phase: PhaseOn, FireAt: at}
	if j.Key() != "u1/on/1700000000000" {
		t.Fatalf("key %s", j.Key())
	}
}
