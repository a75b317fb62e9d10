package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacta-app/tableview/internal/tableview"
)

func TestFilterFlag(t *testing.T) {
	var f filterFlag
	require.NoError(t, f.Set("estado=Activo"))
	require.NoError(t, f.Set(" ciudad = La Habana "))
	require.NoError(t, f.Set("estado=Inactivo"))
	require.NoError(t, f.Set("nota=a=b"))

	assert.Equal(t, []tableview.Filter{
		{Column: "estado", Value: "Inactivo"},
		{Column: "ciudad", Value: "La Habana"},
		{Column: "nota", Value: "a=b"},
	}, f.Pairs())
	assert.Equal(t, "estado=Inactivo,ciudad=La Habana,nota=a=b", f.String())
	assert.Equal(t, map[string]string{"estado": "Inactivo", "ciudad": "La Habana", "nota": "a=b"}, f.Map())

	assert.Error(t, f.Set("estado"))
	assert.Error(t, f.Set("=x"))
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in      string
		col     string
		dir     tableview.Direction
		wantErr bool
	}{
		{in: "", col: "", dir: tableview.Asc},
		{in: "nombre", col: "nombre", dir: tableview.Asc},
		{in: "saldo:desc", col: "saldo", dir: tableview.Desc},
		{in: "saldo:DESCENDING", col: "saldo", dir: tableview.Desc},
		{in: "fecha:asc", col: "fecha", dir: tableview.Asc},
		{in: ":desc", wantErr: true},
		{in: "saldo:up", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			col, dir, err := parseSort(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.col, col)
			assert.Equal(t, tt.dir, dir)
		})
	}
}

func TestValidateOutput(t *testing.T) {
	for _, o := range outputFormats {
		assert.NoError(t, validateOutput(o))
	}
	assert.Error(t, validateOutput("xml"))
}
