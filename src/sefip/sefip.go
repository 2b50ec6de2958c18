// Package sefip holds the scripted SEFIP procedures: clear the base, import
// the monthly file, re-register the worker, add movements and the amount, and
// save the rectified file. Every item replays the same eight stages.
package sefip

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"sefip-robot/src/batch"
	"sefip-robot/src/robot"
)

const (
	DefaultBaseDir  = `C:\Robo_SEFIP`
	DefaultFileName = "SEFIP.RE"
)

// Config locates the per-competência SEFIP.RE file on disk.
type Config struct {
	BaseDir  string
	FileName string
}

func (c Config) withDefaults() Config {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	return c
}

// TargetPath returns <base>\<year>\<year><month>\<file>. The path is typed
// into a Windows file dialog, so it always uses backslashes.
func TargetPath(base, year, month, file string) string {
	base = strings.TrimRight(base, `\/`)
	return base + `\` + year + `\` + year + month + `\` + file
}

// Fixed data of the worker re-registered on every competência.
const (
	workerPIS       = "26979875262"
	workerName      = "DANIEL ANGELO BRAGA"
	workerCategory  = "11"
	workerCBO       = "01231"
	workerAdmission = "01042005"
)

// Plan returns the procedure list builder for cfg.
func Plan(cfg Config) func(item batch.Item) []robot.Procedure {
	cfg = cfg.withDefaults()
	return func(item batch.Item) []robot.Procedure {
		return Procedures(TargetPath(cfg.BaseDir, item.Year, item.Month, cfg.FileName), item.Amount)
	}
}

// Procedures builds the eight stages for one competência.
func Procedures(target, amount string) []robot.Procedure {
	destino := robot.Anchor("destino.png")

	return []robot.Procedure{
		{
			Name: "Etapa 0: Limpar Base",
			Steps: []robot.Step{
				robot.Click("ferramentas.png"),
				robot.Click("limpar.png"),
				robot.Press("enter"),
				robot.Press("enter"),
			},
		},
		{
			Name: "Etapa 1: Importação",
			Steps: []robot.Step{
				robot.Click("arquivo.png"),
				robot.Click("importar.png"),
				robot.Wait(1500 * time.Millisecond),
				robot.Type(target),
				robot.Press("enter"),
				robot.Resolve(robot.Anchor("ok.png").WithTimeout(25 * time.Second)),
			},
		},
		{
			Name: "Etapa 2: Remover Daniel",
			Steps: []robot.Step{
				robot.Click("cadastro.png"),
				robot.DoubleClick("jfescrita.png"),
				robot.Click("daniel.png"),
				robot.Click("excluir.png"),
				robot.Click("sim.png"),
			},
		},
		{
			Name: "Etapa 3: Cadastrar Daniel",
			Steps: []robot.Step{
				robot.Click("jfescrita.png"),
				robot.Click("novotrabalhador.png"),
				robot.Type(workerPIS),
				robot.Press("tab"),
				robot.Type(workerName),
				robot.Press("tab"),
				robot.Type(workerCategory),
				robot.Press("enter"),
				robot.Press("tab"),
				robot.Type(workerCBO),
				robot.Press("enter"),
				robot.Press("tab", "tab"),
				robot.Press("down"),
				robot.Press("tab"),
				robot.Type(workerAdmission),
				robot.Click("salvar.png"),
				robot.Click("sim.png"),
			},
		},
		{
			Name: "Etapa 4: Adicionar Daniel Modalidade 1",
			Steps: []robot.Step{
				robot.Click("movimento.png"),
				robot.Click("jfescrita.png"),
				robot.Hotkey("ctrl", "m"),
				robot.ClickOffset(destino, 0, 20),
				robot.Press("down", "down", "enter"),
				robot.Click("setadupla.png"),
				robot.Click("salvar.png"),
				robot.Click("ok.png"),
			},
		},
		{
			Name: "Etapa 5: Adicionar Demais Modalidade 9",
			Steps: []robot.Step{
				robot.Hotkey("ctrl", "m"),
				robot.Click("trabalhadores2.png"),
				robot.Press("down"),
				robot.Press("enter"),
				robot.ClickOffset(destino, 0, 20),
				robot.Press("down", "down", "enter"),
				robot.Click("setadupla.png"),
				robot.Click("salvar.png"),
				robot.Click("ok.png"),
			},
		},
		{
			Name: "Etapa 6: Adicionar Valor",
			Steps: []robot.Step{
				robot.DoubleClick("jfescrita2.png"),
				robot.DoubleClick("categoria1.png"),
				robot.Click("daniel.png"),
				robot.Click("marcarmovimento.png"),
				robot.Click("dadosmovimento.png"),
				robot.Type(amount),
				robot.Click("salvar.png"),
				robot.Click("sim.png"),
			},
		},
		{
			Name: "Etapa 7: Salvar Retificado",
			Steps: []robot.Step{
				robot.Click("115.png"),
				robot.Click("executar.png"),
				robot.Note("Aguardando confirmação (14 segundos)..."),
				robot.Resolve(robot.Anchor("ok.png").WithTimeout(20 * time.Second)),
				robot.Click("salvar.png"),
				robot.Press("enter", "enter", "enter", "enter"),
			},
		},
	}
}

// Anchors lists every template image the procedures need, in first-use order.
func Anchors() []string {
	return []string{
		"ferramentas.png", "limpar.png",
		"arquivo.png", "importar.png", "ok.png",
		"cadastro.png", "jfescrita.png", "daniel.png", "excluir.png", "sim.png",
		"novotrabalhador.png", "salvar.png",
		"movimento.png", "destino.png", "setadupla.png",
		"trabalhadores2.png",
		"jfescrita2.png", "categoria1.png", "marcarmovimento.png", "dadosmovimento.png",
		"115.png", "executar.png",
	}
}

// MissingAnchors returns the template images absent from dir.
func MissingAnchors(dir string) []string {
	var missing []string
	for _, name := range Anchors() {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
