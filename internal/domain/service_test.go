package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceID(t *testing.T) {
	assert.Equal(t, "101-8096", ServiceID(101, 8096))
	assert.Equal(t, ServiceID(200, 443), ServiceID(200, 443))
}

func TestServiceURL(t *testing.T) {
	assert.Equal(t, "http://10.10.10.50:8096", ServiceURL("10.10.10.50", 8096))
	assert.Equal(t, PlaceholderURL, ServiceURL(AddressUnknown, 80))
	assert.Equal(t, PlaceholderURL, ServiceURL("", 80))
}

func TestServiceSameAs(t *testing.T) {
	base := Service{
		ID:            "101-8096",
		Name:          "jellyfin",
		URL:           "http://10.10.10.50:8096",
		ContainerName: "jellyfin-lxc",
		ContainerKind: WorkloadKindContainer,
		ContainerID:   101,
		Port:          8096,
		IP:            "10.10.10.50",
		LastUpdated:   time.Now(),
		Origin:        OriginDiscovered,
	}

	t.Run("only lastUpdated differs", func(t *testing.T) {
		other := base
		other.LastUpdated = base.LastUpdated.Add(time.Hour)
		assert.True(t, base.SameAs(other))
		assert.Empty(t, base.Diff(other))
	})

	t.Run("status change is a difference", func(t *testing.T) {
		other := base
		other.Status = WorkloadStatusStopped
		assert.False(t, base.SameAs(other))
		assert.Contains(t, base.Diff(other), "Status")
	})

	t.Run("address change is a difference", func(t *testing.T) {
		other := base
		other.IP = "10.10.10.51"
		assert.False(t, base.SameAs(other))
	})
}

func TestChangeEventPayload(t *testing.T) {
	svc := Service{ID: "300-80", Name: "old-app"}

	added := ServiceAdded(svc)
	assert.Equal(t, EventServiceAdded, added.Kind)
	assert.Equal(t, svc, added.Payload())
	assert.Equal(t, "300-80", added.ServiceID())

	removed := ServiceRemoved(svc.Ref())
	assert.Equal(t, EventServiceRemoved, removed.Kind)
	assert.Equal(t, ServiceRef{ID: "300-80", Name: "old-app"}, removed.Payload())
	assert.Equal(t, "300-80", removed.ServiceID())
}
