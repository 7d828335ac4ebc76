package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/addrslips-core/internal/store"
)

func TestAddressCRUD(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Addresses")
	st, err := a.AddStreet(ctx, NewStreet{Name: ptr("Elm Row")})
	require.NoError(t, err)

	addr, err := a.AddAddress(ctx, NewAddress{
		HouseNumber:    "12a",
		Position:       Point{X: 40, Y: 60},
		Confidence:     0.75,
		EstimatedFlats: ptr(uint16(4)),
		StreetID:       &st.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, Address{
		ID:             addr.ID,
		AreaID:         a.ID(),
		HouseNumber:    "12a",
		Position:       Point{X: 40, Y: 60},
		Confidence:     0.75,
		EstimatedFlats: ptr(uint16(4)),
		StreetID:       &st.ID,
	}, addr)

	got, err := a.Address(ctx, addr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, addr, *got)

	missing, err := a.Address(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, a.DeleteAddress(ctx, addr.ID))
	assert.ErrorIs(t, a.DeleteAddress(ctx, addr.ID), ErrAddressNotFound)
}

func TestAddAddressValidation(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Validate")

	_, err := a.AddAddress(ctx, NewAddress{HouseNumber: "", Confidence: 0.5})
	assert.ErrorIs(t, err, ErrInvalidHouseNumber)
	_, err = a.AddAddress(ctx, NewAddress{HouseNumber: "1", Confidence: 2})
	assert.ErrorIs(t, err, ErrInvalidConfidence)

	_, err = a.UpdateAddress(ctx, 1, AddressUpdate{Confidence: ptr(-1.0)})
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestUpdateAddressPartial(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Partial")
	st, err := a.AddStreet(ctx, NewStreet{})
	require.NoError(t, err)

	addr, err := a.AddAddress(ctx, NewAddress{
		HouseNumber:  "5",
		Position:     Point{X: 1, Y: 2},
		Confidence:   0.4,
		CircleRadius: ptr(uint32(12)),
	})
	require.NoError(t, err)

	// Only Verified changes; everything else stays.
	got, err := a.UpdateAddress(ctx, addr.ID, AddressUpdate{Verified: ptr(true)})
	require.NoError(t, err)
	want := addr
	want.Verified = true
	assert.Equal(t, want, got)

	got, err = a.UpdateAddress(ctx, addr.ID, AddressUpdate{
		HouseNumber:    ptr("5b"),
		Position:       &Point{X: 70, Y: 80},
		Confidence:     ptr(1.0),
		EstimatedFlats: Set[uint16](2),
		CircleRadius:   Null[uint32](),
		StreetID:       Set(st.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "5b", got.HouseNumber)
	assert.Equal(t, Point{X: 70, Y: 80}, got.Position)
	assert.Equal(t, 1.0, got.Confidence)
	assert.True(t, got.Verified)
	assert.Equal(t, ptr(uint16(2)), got.EstimatedFlats)
	assert.Nil(t, got.CircleRadius)
	assert.Equal(t, &st.ID, got.StreetID)

	got, err = a.UpdateAddress(ctx, addr.ID, AddressUpdate{StreetID: Null[int64]()})
	require.NoError(t, err)
	assert.Nil(t, got.StreetID)
	assert.Equal(t, ptr(uint16(2)), got.EstimatedFlats)

	_, err = a.UpdateAddress(ctx, 9999, AddressUpdate{Verified: ptr(false)})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestAddressesByStreet(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "ByStreet")
	s1, err := a.AddStreet(ctx, NewStreet{})
	require.NoError(t, err)
	s2, err := a.AddStreet(ctx, NewStreet{})
	require.NoError(t, err)

	on1a, err := a.AddAddress(ctx, NewAddress{HouseNumber: "1", Confidence: 1, StreetID: &s1.ID})
	require.NoError(t, err)
	_, err = a.AddAddress(ctx, NewAddress{HouseNumber: "2", Confidence: 1, StreetID: &s2.ID})
	require.NoError(t, err)
	on1b, err := a.AddAddress(ctx, NewAddress{HouseNumber: "3", Confidence: 1, StreetID: &s1.ID})
	require.NoError(t, err)
	addTestAddress(t, a, "loose")

	got, err := a.AddressesByStreet(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []Address{on1a, on1b}, got)

	all, err := a.Addresses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestAddressStreetMustShareArea(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "A")
	b := addTestArea(t, p, "B")

	foreign, err := b.AddStreet(ctx, NewStreet{Name: ptr("Other Side")})
	require.NoError(t, err)

	_, err = a.AddAddress(ctx, NewAddress{HouseNumber: "1", Confidence: 1, StreetID: &foreign.ID})
	assert.ErrorIs(t, err, store.ErrForeignKey)

	addr := addTestAddress(t, a, "2")
	_, err = a.UpdateAddress(ctx, addr.ID, AddressUpdate{StreetID: Set(foreign.ID)})
	assert.ErrorIs(t, err, store.ErrForeignKey)

	_, err = a.AddAddress(ctx, NewAddress{HouseNumber: "3", Confidence: 1, StreetID: ptr(int64(424242))})
	assert.ErrorIs(t, err, store.ErrForeignKey)
}

func TestAddressesScopedToArea(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "A")
	b := addTestArea(t, p, "B")
	addr := addTestAddress(t, a, "10")

	got, err := b.Address(ctx, addr.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = b.UpdateAddress(ctx, addr.ID, AddressUpdate{Verified: ptr(true)})
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.ErrorIs(t, b.DeleteAddress(ctx, addr.ID), ErrAddressNotFound)
}

func TestAddressOnStreetScenario(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	a, err := p.AddArea(ctx, NewArea{
		Name:      "Test Area",
		Color:     Color{R: 255},
		ImagePath: writePNG(t, 100, 100),
	})
	require.NoError(t, err)
	st, err := a.AddStreet(ctx, NewStreet{Name: ptr("Main Street")})
	require.NoError(t, err)

	addr, err := a.AddAddress(ctx, NewAddress{
		HouseNumber:    "42",
		Position:       Point{X: 100, Y: 200},
		Confidence:     0.95,
		EstimatedFlats: ptr(uint16(4)),
		StreetID:       &st.ID,
	})
	require.NoError(t, err)

	got, err := a.AddressesByStreet(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, addr, got[0])
	assert.Equal(t, "42", got[0].HouseNumber)
	assert.Equal(t, 0.95, got[0].Confidence)
}
