// Package cache provides the bounded LRU map that resource pools keep their
// buckets in.
//
//	c := cache.New[driver.BufferInfo, *bucket](64, func(k driver.BufferInfo, b *bucket) {
//	    b.destroyAll()
//	})
//	b, _ := c.GetOrCreate(info, newBucket)
//
// When an insert pushes the cache past its limit, the least recently used
// entry is removed and handed to the eviction callback, so evicted GPU
// resources can be destroyed instead of leaked.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
