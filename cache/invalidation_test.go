package cache

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext() *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	return c
}

func TestRequestTags(t *testing.T) {
	id := uint(42)
	req := Request{Resource: ResourceAnnouncements, RecordID: &id, Extra: []string{"sitemap"}}

	tags := req.Tags()
	assert.Contains(t, tags, "announcements")
	assert.Contains(t, tags, "announcements:42")
	assert.Contains(t, tags, "page:/admin/announcements")
	assert.Contains(t, tags, "layout:/admin/announcements")
	assert.Contains(t, tags, "page:/admin/announcements/42")
	assert.Contains(t, tags, "layout:/admin/announcements/42")
	assert.Contains(t, tags, "sitemap")
}

func TestImmediatePathReadYourOwnWrite(t *testing.T) {
	store := NewStore()
	tag := "page:/admin/announcements/42"

	loads := 0
	loader := func() (interface{}, error) {
		loads++
		if loads == 1 {
			return "old", nil
		}
		return "new", nil
	}

	// Pembaca pertama mengisi memo
	c := testContext()
	v, err := store.Fetch(c, tag, loader)
	assert.NoError(t, err)
	assert.Equal(t, "old", v)

	// Mutasi di context yang sama: re-read langsung melihat nilai baru
	// tanpa menunggu purge asinkron
	id := uint(42)
	store.Invalidate(c, Request{Resource: ResourceAnnouncements, RecordID: &id})

	v, err = store.Fetch(c, tag, loader)
	assert.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestAsyncPurgeReachesIndependentReaders(t *testing.T) {
	store := NewStore()
	tag := "page:/admin/announcements"

	value := "v1"
	loader := func() (interface{}, error) { return value, nil }

	reader := testContext()
	v, _ := store.Fetch(reader, tag, loader)
	assert.Equal(t, "v1", v)

	value = "v2"
	writer := testContext()
	store.Invalidate(writer, Request{Resource: ResourceAnnouncements})

	// Pembaca independen melihat nilai baru setelah purge asinkron selesai
	assert.Eventually(t, func() bool {
		other := testContext()
		got, _ := store.Fetch(other, tag, loader)
		return got == "v2"
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidateWithoutContextIsSilent(t *testing.T) {
	store := NewStore()

	// Di luar request context jalur immediate dilewati tanpa panic;
	// purge asinkron tetap jalan
	before := store.Version(ResourceNotifications)
	store.Invalidate(nil, Request{Resource: ResourceNotifications})

	assert.Eventually(t, func() bool {
		return store.Version(ResourceNotifications) > before
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidateBulkHasNoRecordTags(t *testing.T) {
	req := Request{Resource: ResourceContactRequests}
	tags := req.Tags()
	assert.Contains(t, tags, "contact-requests")
	assert.NotContains(t, tags, "contact-requests:0")
	assert.Len(t, tags, 3)
}
