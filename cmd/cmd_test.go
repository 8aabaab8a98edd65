package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFramesCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "frames.csv", "frame,pin_A,value_A,type_A\n1,9,90,servo\n2,9,91,servo\n3,9,91,servo\n")
	if _, err := run(t, "frames", in, filepath.Join(dir, "show"), "24"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "show.ino"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "target_delta = 41;") {
		t.Errorf("expected 24fps frame interval in sketch")
	}

	if _, err := run(t, "frames", in, filepath.Join(dir, "show.ino"), "--no-clobber"); err == nil {
		t.Error("expected no-clobber to refuse an existing sketch")
	}
	framesNoClobber = false
}

func TestRoutineAndScenesCommands(t *testing.T) {
	dir := t.TempDir()
	routine := writeFile(t, dir, "routine.csv", `Scene,Name,Pin,Position,Time,Ease In,Ease Out
0,Home,6,135,,,
1,Raise,6,270,1000,100,100
2,Wait,,,500,,
`)
	servos := writeFile(t, dir, "servos.csv", "Pin,Full Sweep,Minimum,Maximum,Standby\n6,270,544,2400,0\n")
	out := filepath.Join(dir, "seq.ino")
	if _, err := run(t, "routine", routine, servos, "-o", out, "--motion-pin", "2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"#define MOTION_PIN 2", "#define SERVO6_STANDBY 544", "update_servo(elapsed, SERVO6, 2400, 1000, 100, 100);"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("sketch missing %q", want)
		}
	}

	table, err := run(t, "scenes", routine, servos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Raise", "(delay)", "1472-2400"} {
		if !strings.Contains(table, want) {
			t.Errorf("scene table missing %q:\n%s", want, table)
		}
	}
}

func TestPerformDryRun(t *testing.T) {
	dir := t.TempDir()
	routine := writeFile(t, dir, "routine.yaml", `
scenes:
  - id: 1
    actions:
      - name: raise
        pin: 6
        position: 180
        time: 20
`)
	cfgPath := writeFile(t, dir, "servoseq.toml", "[sketch]\nreset_duration_ms = 0\nupdate_interval_ms = 1\n")
	rootCmd.SetArgs([]string{"--config", cfgPath, "perform", routine, "--dry-run", "--once"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	performDryRun, performOnce = false, false
}

func TestSweepAppendsReplayableRoutine(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "servoseq.toml", "[sketch]\nupdate_interval_ms = 1\nreset_duration_ms = 0\n")
	history := filepath.Join(dir, "history.csv")
	sweeps := [][]string{
		{"sweep", "9", "0", "180", "-t", "20ms", "--ease-in", "5ms", "--settle", "0s", "--reverse"},
		{"sweep", "9", "90", "270", "-t", "20ms", "--settle", "0s"},
	}
	for _, args := range sweeps {
		rootCmd.SetArgs(append([]string{"--config", cfgPath}, append(args, "--dry-run", "--append", history)...))
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("sweep %v: %v", args, err)
		}
		sweepReverse, sweepEaseIn = false, 0
	}

	data, err := os.ReadFile(history)
	if err != nil {
		t.Fatal(err)
	}
	want := `Scene,Name,Pin,Position,Time,Ease In,Ease Out
0,start,9,0,,,
1,sweep pin 9,9,180,20,5,0
2,sweep pin 9 back,9,0,20,5,0
3,move to start,9,90,2000,0,0
4,sweep pin 9,9,270,20,0,0
`
	if string(data) != want {
		t.Errorf("unexpected history:\n%s", data)
	}

	rootCmd.SetArgs([]string{"--config", cfgPath, "perform", history, "--dry-run", "--once"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("replaying history: %v", err)
	}
	performDryRun, performOnce, sweepDryRun, sweepAppend = false, false, false, ""

	if _, err := run(t, "sweep", "9", "0", "300", "--dry-run"); err == nil {
		t.Error("expected an out of range sweep to fail")
	}
	sweepDryRun = false
}
