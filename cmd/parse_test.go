package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

const fixture = "../internal/xbrl/testdata/annual_ixbrl.htm"

func TestParseFile_Markup(t *testing.T) {
	res, err := parseFile(fixture, false, false)
	require.NoError(t, err)
	assert.Equal(t, 4, res.NumericFacts)
	assert.Len(t, res.Facts, 4)

	res, err = parseFile(fixture, false, true)
	require.NoError(t, err)
	assert.Equal(t, 6, res.TotalFacts)
}

func TestParseFile_Archive(t *testing.T) {
	doc, err := os.ReadFile(fixture)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("XBRL/PublicDoc/0101010_honbun_jpcrp030000-asr-001_E02144-000_2024-03-31_01_2024-06-18_ixbrl.htm")
	require.NoError(t, err)
	_, err = w.Write(doc)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "S100TEST.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	res, err := parseFile(path, false, false)
	require.NoError(t, err)
	assert.Equal(t, 4, res.NumericFacts)
}

func TestParseFile_Structured(t *testing.T) {
	payload := `{"status":"000","message":"정상","list":[
{"bsns_year":"2023","reprt_code":"11011","account_id":"ifrs-full_Revenue","account_nm":"매출액","thstrm_amount":"258935494000000","frmtrm_amount":"302231360000000"},
{"bsns_year":"2023","reprt_code":"11011","account_id":"-표준계정코드 미사용-","account_nm":"기타수익","thstrm_amount":"","frmtrm_amount":"1000"}]}`
	path := filepath.Join(t.TempDir(), "fs.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	res, err := parseFile(path, true, false)
	require.NoError(t, err)
	require.Len(t, res.Facts, 2)
	assert.Equal(t, "ifrs-full_Revenue", res.Facts[0].Concept)
	require.NotNil(t, res.Facts[0].Value)
	assert.Equal(t, 258935494000000.0, *res.Facts[0].Value)
	assert.Equal(t, "기타수익", res.Facts[1].Concept)
	assert.Equal(t, 1000.0, *res.Facts[1].Value)
}

func TestParseFile_Errors(t *testing.T) {
	_, err := parseFile(filepath.Join(t.TempDir(), "missing.htm"), false, false)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = parseFile(path, true, false)
	assert.ErrorIs(t, err, xbrl.ErrParse)
}
