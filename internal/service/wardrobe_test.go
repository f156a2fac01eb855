package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fitroom/internal/model"
	"fitroom/internal/service"
	"fitroom/internal/storage"
)

func newWardrobe(backend *fakeWardrobe, store storage.Storage) *service.WardrobeService {
	w := service.NewWardrobeService(backend, store)
	w.SetImageOpener(func(ctx context.Context, uri string) (io.ReadCloser, string, error) {
		if strings.Contains(uri, "missing") {
			return nil, "", errors.New("no such file")
		}
		return io.NopCloser(strings.NewReader("garment")), "item.jpg", nil
	})
	return w
}

func defaultGarments() []model.DefaultGarment {
	return []model.DefaultGarment{
		{URL: "/wardrobe/white_tee.jpg", Type: model.GarmentUpper},
		{URL: "/wardrobe/black_jeans.jpg", Type: model.GarmentLower},
	}
}

func TestActivateLoadsDefaultsOnce(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()

	items := w.Activate(ctx)
	if len(items) != 2 || items[0].URI != testBase+"/wardrobe/white_tee.jpg" || items[1].Type != model.GarmentLower {
		t.Fatalf("unexpected items %+v", items)
	}
	w.Activate(ctx)
	if backend.calls != 1 {
		t.Fatalf("expected defaults to be fetched once, got %d", backend.calls)
	}
}

func TestActivateRetriesAfterFailure(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, err: errBackendDown}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()

	if items := w.Activate(ctx); len(items) != 0 {
		t.Fatalf("expected empty wardrobe, got %+v", items)
	}

	backend.err = nil
	backend.defaults = defaultGarments()
	if items := w.Activate(ctx); len(items) != 2 {
		t.Fatalf("expected defaults after retry, got %+v", items)
	}
}

func TestAddLocalAndRemove(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	w.Activate(context.Background())

	item, err := w.AddLocal("file:///photos/skirt.jpg", model.GarmentLower)
	if err != nil {
		t.Fatal(err)
	}
	items := w.Items()
	if len(items) != 3 || items[2].ID != item.ID {
		t.Fatalf("expected local item last, got %+v", items)
	}

	if err := w.Remove(item.ID, func(model.WardrobeItem) bool { return false }); !errors.Is(err, service.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if len(w.Items()) != 3 {
		t.Fatal("declined removal must keep the item")
	}

	var asked model.WardrobeItem
	if err := w.Remove(item.ID, func(it model.WardrobeItem) bool { asked = it; return true }); err != nil {
		t.Fatal(err)
	}
	if asked.ID != item.ID {
		t.Fatalf("expected confirmation for %s, got %+v", item.ID, asked)
	}
	for _, it := range w.Items() {
		if it.ID == item.ID {
			t.Fatal("expected item to be removed")
		}
	}

	if err := w.Remove(item.ID, func(model.WardrobeItem) bool { return true }); !errors.Is(err, service.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestAddLocalValidation(t *testing.T) {
	w := newWardrobe(&fakeWardrobe{base: testBase}, storage.NewMemoryStorage())

	item, err := w.AddLocal("   ", model.GarmentUpper)
	if item != nil || err != nil {
		t.Fatalf("expected cancelled pick to be a no-op, got %+v %v", item, err)
	}
	if _, err := w.AddLocal("file:///hat.jpg", model.GarmentType("head")); !errors.Is(err, service.ErrInvalidGarmentType) {
		t.Fatalf("expected ErrInvalidGarmentType, got %v", err)
	}
	if len(w.Items()) != 0 {
		t.Fatalf("expected empty wardrobe, got %+v", w.Items())
	}
}

func TestLocalItemsPersist(t *testing.T) {
	store := storage.NewMemoryStorage()
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	ctx := context.Background()

	first := newWardrobe(backend, store)
	a, _ := first.AddLocal("file:///a.jpg", model.GarmentUpper)
	b, _ := first.AddLocal("file:///b.jpg", model.GarmentLower)

	second := newWardrobe(backend, store)
	items := second.Activate(ctx)
	if len(items) != 4 || items[2].ID != a.ID || items[3].ID != b.ID {
		t.Fatalf("expected defaults then restored locals, got %+v", items)
	}
}

func TestTryOnUpdatesWornSlot(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()
	items := w.Activate(ctx)

	processed, err := w.TryOn(ctx, items[0])
	if err != nil {
		t.Fatal(err)
	}
	if processed.URL != testBase+"/processed/upper_item.jpg" || processed.ItemID != items[0].ID {
		t.Fatalf("unexpected result %+v", processed)
	}
	w.TryOn(ctx, items[1])

	worn := w.Worn()
	if worn.Upper != items[0].ID || worn.Lower != items[1].ID {
		t.Fatalf("unexpected worn state %+v", worn)
	}
	if w.IsTrying() {
		t.Fatal("expected trying flag to be reset")
	}
}

func TestTryOnFailureKeepsWornState(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()
	items := w.Activate(ctx)
	w.TryOn(ctx, items[0])

	backend.tryErr = errBackendDown
	other := model.WardrobeItem{ID: "other", URI: "file:///other.jpg", Type: model.GarmentUpper}
	if _, err := w.TryOn(ctx, other); !errors.Is(err, service.ErrTryOnFailed) {
		t.Fatalf("expected ErrTryOnFailed, got %v", err)
	}
	if w.Worn().Upper != items[0].ID {
		t.Fatalf("failed try-on must not change worn state, got %+v", w.Worn())
	}

	backend.tryErr = nil
	missing := model.WardrobeItem{ID: "gone", URI: "file:///missing.jpg", Type: model.GarmentLower}
	if _, err := w.TryOn(ctx, missing); !errors.Is(err, service.ErrTryOnFailed) {
		t.Fatalf("expected ErrTryOnFailed for unreadable image, got %v", err)
	}
	if w.Worn().Lower != "" {
		t.Fatalf("expected lower slot to stay empty, got %+v", w.Worn())
	}
}

func TestResetWornDiscardsInFlightResult(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()
	items := w.Activate(ctx)

	backend.onTryOn = w.ResetWorn
	if _, err := w.TryOn(ctx, items[0]); !errors.Is(err, service.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if !w.Worn().Empty() || w.Processed() != nil {
		t.Fatalf("expected clean state, got %+v", w.Worn())
	}
}

func TestLeaveDiscardsTryOn(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()
	items := w.Activate(ctx)

	backend.onTryOn = w.Leave
	if _, err := w.TryOn(ctx, items[0]); !errors.Is(err, service.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if !w.Worn().Empty() {
		t.Fatalf("expected no worn items, got %+v", w.Worn())
	}
}

func TestRemoveWornItemKeepsWornState(t *testing.T) {
	backend := &fakeWardrobe{base: testBase, defaults: defaultGarments()}
	w := newWardrobe(backend, storage.NewMemoryStorage())
	ctx := context.Background()
	items := w.Activate(ctx)
	w.TryOn(ctx, items[0])

	if err := w.Remove(items[0].ID, func(model.WardrobeItem) bool { return true }); err != nil {
		t.Fatal(err)
	}
	if w.Worn().Upper != items[0].ID {
		t.Fatalf("expected worn state to be untouched, got %+v", w.Worn())
	}
}
