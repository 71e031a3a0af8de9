package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProblemInfo(t *testing.T) {
	t.Run("keeps the owning mod when known", func(t *testing.T) {
		problem := NewProblemInfo(JunkFile, "Data/thumbs.db", "thumbs.db", "Some Mod", "Junk file.", DeleteFile)
		assert.Equal(t, "Some Mod", problem.Mod)
		assert.Equal(t, JunkFile, problem.Type)
		assert.Equal(t, DeleteFile, problem.Solution)
	})

	t.Run("defaults to unmanaged when no mod owns the file", func(t *testing.T) {
		problem := NewProblemInfo(JunkFile, "Data/thumbs.db", "thumbs.db", "", "Junk file.", DeleteFile)
		assert.Equal(t, UnmanagedMod, problem.Mod)
	})

	t.Run("missing files have no owner", func(t *testing.T) {
		problem := NewProblemInfo(FileNotFound, "Data/missing.ba2", "missing.ba2", "", "Archive not found.", VerifyFiles)
		assert.Equal(t, "", problem.Mod)
	})
}

func TestNewSimpleProblemInfo(t *testing.T) {
	problem := NewSimpleProblemInfo("Fallout4.ini", "Archive section missing from INIs", "The [Archive] section was not found.", "Verify your INI files.")
	assert.Equal(t, ProblemType("Archive section missing from INIs"), problem.Type)
	assert.Equal(t, "Fallout4.ini", problem.Path)
	assert.Equal(t, "Fallout4.ini", problem.RelativePath)
	assert.Equal(t, "", problem.Mod)
	assert.Equal(t, SolutionType("Verify your INI files."), problem.Solution)
}
