package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScalesCommand(t *testing.T) {
	convey.Convey("scales lists both families", t, func() {
		out, err := run("scales")
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "major: C major, C# major")
		convey.So(out, convey.ShouldContainSubstring, "minor: ")
	})

	convey.Convey("scales <name> prints the drawable notes", t, func() {
		out, err := run("scales", "A minor")
		convey.So(err, convey.ShouldBeNil)
		convey.So(strings.HasPrefix(out, "A4 B4 C5"), convey.ShouldBeTrue)
	})

	convey.Convey("an unknown scale is an error", t, func() {
		_, err := run("scales", "H major")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestExportCommand(t *testing.T) {
	convey.Convey("export writes a MIDI file next to the melody", t, func() {
		dir := t.TempDir()
		src := filepath.Join(dir, "tune.json")
		record := `{"id":"x","title":"tune","scale":"C major","instrument":"piano",
			"notes":[{"note":"C4","timestamp":0},{"note":"G4","timestamp":250,"volume":0.5}]}`
		convey.So(os.WriteFile(src, []byte(record), 0o644), convey.ShouldBeNil)

		exportOut = ""
		_, err := run("export", src, "--bpm", "100")
		convey.So(err, convey.ShouldBeNil)

		data, err := os.ReadFile(filepath.Join(dir, "tune.mid"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(string(data[:4]), convey.ShouldEqual, "MThd")
	})

	convey.Convey("a missing melody file fails", t, func() {
		_, err := run("export", filepath.Join(t.TempDir(), "missing.json"))
		convey.So(err, convey.ShouldNotBeNil)
	})
}
