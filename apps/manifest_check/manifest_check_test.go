package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, agreement, uri string) string {
	t.Helper()
	b := testutil.NewManifestBuilder(testutil.NamespaceSeda21)
	if agreement != "" {
		b.Text(b.Root, "ArchivalAgreement", agreement)
	}
	obj := b.AddBinary(b.AddGroup("G1"), "BDO1", "")
	if uri != "" {
		b.Text(obj, "Uri", uri)
	}
	unit := b.AddUnit(nil, "U1", "Root")
	b.RefGroup(unit, "G1")
	manifestPath, err := testutil.WriteManifest(t.TempDir(), "manifest.xml", b)
	require.Nil(t, err)
	return manifestPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newCheckCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckPrintsResult(t *testing.T) {
	manifestPath := writeManifest(t, "", "")
	out, err := runCommand(t, "--operation-id", "op-check", manifestPath)
	require.Nil(t, err)

	result := make(map[string]interface{})
	require.Nil(t, json.Unmarshal([]byte(out), &result))
	header := result["header"].(map[string]interface{})
	assert.Equal(t, "op-check", header["operation_id"])
	assert.Equal(t, "archive", header["operation_kind"])
	assert.Len(t, result["units"], 1)
	assert.Len(t, result["groups"], 1)
}

func TestCheckSummary(t *testing.T) {
	manifestPath := writeManifest(t, "", "")
	out, err := runCommand(t, "--summary", "--kind", "holding", manifestPath)
	require.Nil(t, err)
	assert.Contains(t, out, "units:     1")
	assert.Contains(t, out, "groups:    1")
}

func TestCheckWithReferential(t *testing.T) {
	manifestPath := writeManifest(t, "AG-003", "")
	_, err := runCommand(t, "-r", testutil.PathToReferentialFixture(), manifestPath)
	assert.Nil(t, err)

	manifestPath = writeManifest(t, "AG-002", "")
	_, err = runCommand(t, "-r", testutil.PathToReferentialFixture(), manifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Archival agreement 'AG-002' is inactive")
}

func TestCheckContentRoot(t *testing.T) {
	manifestPath := writeManifest(t, "", "content/missing.txt")
	_, err := runCommand(t, "--content-root", t.TempDir(), manifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload content/missing.txt")
	assert.Contains(t, err.Error(), "(at BDO1)")
}

func TestCheckBadArguments(t *testing.T) {
	_, err := runCommand(t)
	assert.Error(t, err)

	manifestPath := writeManifest(t, "", "")
	_, err = runCommand(t, "--kind", "shredding", manifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation kind 'shredding'")

	_, err = runCommand(t, "/no/such/manifest.xml")
	assert.Error(t, err)
}
