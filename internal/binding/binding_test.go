package binding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	n := New("dataRegistro")
	n.Now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return n
}

func TestNormalize_ScalarFields(t *testing.T) {
	n := newTestNormalizer()

	schema, payload, err := n.Normalize([]Field{
		{Path: "despesa.descricao", Kind: KindText, Value: "tinta"},
		{Path: "despesa.valor", Kind: KindNumber, Value: "80.50"},
		{Path: "despesa.pago", Kind: KindCheckbox, Checked: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "despesa", schema)
	assert.Equal(t, "tinta", payload["descricao"])
	assert.Equal(t, 80.50, payload["valor"])
	assert.Equal(t, true, payload["pago"])
}

func TestNormalize_LineItems(t *testing.T) {
	n := newTestNormalizer()

	schema, payload, err := n.Normalize([]Field{
		{Path: "pedido.cliente", Kind: KindText, Value: "Maria"},
		{Path: "pedido.produtos.0.nome", Kind: KindText, Value: "banner"},
		{Path: "pedido.produtos.0.quantidade", Kind: KindNumber, Value: "2"},
		{Path: "pedido.produtos.1.nome", Kind: KindText, Value: "adesivo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pedido", schema)

	produtos, ok := payload["produtos"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, produtos, 2)
	assert.Equal(t, "banner", produtos[0]["nome"])
	assert.Equal(t, 2.0, produtos[0]["quantidade"])
	assert.Equal(t, "adesivo", produtos[1]["nome"])
}

func TestNormalize_CompactsSparseItems(t *testing.T) {
	n := newTestNormalizer()

	_, payload, err := n.Normalize([]Field{
		{Path: "pedido.produtos.3.nome", Kind: KindText, Value: "cartaz"},
		{Path: "pedido.produtos.7.nome", Kind: KindText, Value: "flyer"},
	})
	require.NoError(t, err)

	produtos := payload["produtos"].([]map[string]any)
	require.Len(t, produtos, 2)
	assert.Equal(t, "cartaz", produtos[0]["nome"])
	assert.Equal(t, "flyer", produtos[1]["nome"])
}

func TestNormalize_RadioOnlyWhenChecked(t *testing.T) {
	n := newTestNormalizer()

	_, payload, err := n.Normalize([]Field{
		{Path: "venda.pagamento", Kind: KindRadio, Value: "pix", Checked: false},
		{Path: "venda.pagamento", Kind: KindRadio, Value: "dinheiro", Checked: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "dinheiro", payload["pagamento"])
}

func TestNormalize_BadNumberFallsBackToZero(t *testing.T) {
	n := newTestNormalizer()

	_, payload, err := n.Normalize([]Field{
		{Path: "despesa.valor", Kind: KindNumber, Value: "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), payload["valor"])
}

func TestNormalize_IgnoresOtherSchemas(t *testing.T) {
	n := newTestNormalizer()

	schema, payload, err := n.Normalize([]Field{
		{Path: "pedido.cliente", Kind: KindText, Value: "Rui"},
		{Path: "despesa.valor", Kind: KindNumber, Value: "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pedido", schema)
	assert.NotContains(t, payload, "valor")
}

func TestNormalize_StampsDateField(t *testing.T) {
	n := newTestNormalizer()

	_, payload, err := n.Normalize([]Field{
		{Path: "venda.produto", Kind: KindText, Value: "banner"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", payload["dataRegistro"])

	// A supplied date wins over the stamp.
	_, payload, err = n.Normalize([]Field{
		{Path: "venda.produto", Kind: KindText, Value: "banner"},
		{Path: "venda.dataRegistro", Kind: KindDate, Value: "2026-02-10"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10", payload["dataRegistro"])
}

func TestNormalize_Errors(t *testing.T) {
	n := newTestNormalizer()

	_, _, err := n.Normalize(nil)
	assert.ErrorIs(t, err, ErrNoSchema)

	_, _, err = n.Normalize([]Field{
		{Path: "venda.pagamento", Kind: KindRadio, Value: "pix", Checked: false},
	})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
