package sefip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sefip-robot/src/batch"
	"sefip-robot/src/robot"
	"sefip-robot/src/robot/robottest"
)

func TestTargetPath(t *testing.T) {
	tests := []struct {
		base, year, month, file string
		want                    string
	}{
		{DefaultBaseDir, "2006", "01", DefaultFileName, `C:\Robo_SEFIP\2006\200601\SEFIP.RE`},
		{`D:\sefip\`, "2010", "12", "X.RE", `D:\sefip\2010\201012\X.RE`},
	}
	for _, tt := range tests {
		if got := TargetPath(tt.base, tt.year, tt.month, tt.file); got != tt.want {
			t.Errorf("TargetPath(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestProceduresReplayInOrder(t *testing.T) {
	screen := robottest.NewScreen()
	in := &robottest.Input{}
	log := &robottest.Log{}
	exec := robottest.Executor(robottest.Images(t, Anchors()...), screen, in, robottest.NewOperator(), log)
	sess := robot.NewSession(exec)

	plan := Plan(Config{})
	procs := plan(batch.Item{Year: "2006", Month: "02", Amount: "350"})
	require.Len(t, procs, 8)
	for _, p := range procs {
		res, err := sess.Run(context.Background(), p)
		require.NoError(t, err, p.Name)
		require.Equal(t, robot.ProcedureCompleted, res.Status, p.Name)
	}

	c := "click 100,100"
	d := "double 100,100"
	below := "click 100,120"
	want := []string{
		// etapa 0
		c, c, "press enter", "press enter",
		// etapa 1
		c, c, `type C:\Robo_SEFIP\2006\200602\SEFIP.RE`, "press enter", c,
		// etapa 2
		c, d, c, c, c,
		// etapa 3
		c, c, "type 26979875262", "press tab", "type DANIEL ANGELO BRAGA", "press tab",
		"type 11", "press enter", "press tab", "type 01231", "press enter",
		"press tab tab", "press down", "press tab", "type 01042005", c, c,
		// etapa 4
		c, c, "hotkey ctrl+m", below, "press down down enter", c, c, c,
		// etapa 5
		"hotkey ctrl+m", c, "press down", "press enter", below, "press down down enter", c, c, c,
		// etapa 6
		d, d, c, c, c, "type 350", c, c,
		// etapa 7
		c, c, c, c, "press enter enter enter enter",
	}
	assert.Equal(t, want, in.Snapshot())
	assert.Equal(t, 1, log.Count("Aguardando confirmação (14 segundos)..."))
	assert.Equal(t, 1, log.Count("Iniciando Etapa 7: Salvar Retificado"))

	for _, name := range Anchors() {
		assert.Positive(t, screen.Calls(name), name)
	}
}

func TestPlanUsesConfiguredTarget(t *testing.T) {
	procs := Plan(Config{BaseDir: `E:\rpa`, FileName: "A.RE"})(batch.Item{Year: "2007", Month: "11", Amount: "1"})
	require.Len(t, procs, 8)

	in := &robottest.Input{}
	exec := robottest.Executor(robottest.Images(t, Anchors()...), robottest.NewScreen(), in, robottest.NewOperator(), &robottest.Log{})
	_, err := robot.NewSession(exec).Run(context.Background(), procs[1])
	require.NoError(t, err)
	assert.Contains(t, in.Snapshot(), `type E:\rpa\2007\200711\A.RE`)
}

func TestMissingAnchors(t *testing.T) {
	all := Anchors()
	dir := robottest.Images(t, all[1:]...)
	assert.Equal(t, []string{all[0]}, MissingAnchors(dir))
	assert.Empty(t, MissingAnchors(robottest.Images(t, all...)))
}
