// Package scene is an in-memory implementation of the host scene
// contract: an ordered object registry with a change-notification feed.
// The viewer binary drives the render engine with it.
package scene

import (
	"github.com/Faultbox/toonview/internal/engine/host"
	"github.com/Faultbox/toonview/pkg/math"
)

type record struct {
	id        host.ObjectID
	typ       host.ObjectType
	mesh      *host.Mesh
	light     host.LightType
	rotation  math.Quat
	transform math.Mat4
}

// Scene owns a mutable object set and accumulates change flags between
// flushes.
type Scene struct {
	order   []host.ObjectID
	records map[host.ObjectID]*record
	updates map[host.ObjectID]*host.Update
	flushed bool
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		records: make(map[host.ObjectID]*record),
		updates: make(map[host.ObjectID]*host.Update),
	}
}

func (s *Scene) update(id host.ObjectID) *host.Update {
	up, ok := s.updates[id]
	if !ok {
		up = &host.Update{ID: id}
		s.updates[id] = up
	}
	return up
}

// AddMesh adds a mesh object at the identity transform.
func (s *Scene) AddMesh(id host.ObjectID, mesh *host.Mesh) {
	s.order = append(s.order, id)
	s.records[id] = &record{
		id:        id,
		typ:       host.TypeMesh,
		mesh:      mesh,
		transform: math.Identity(),
	}
	up := s.update(id)
	up.Geometry = true
	up.ObjectLevel = true
}

// AddSun adds a directional light with the given world rotation.
func (s *Scene) AddSun(id host.ObjectID, rotation math.Quat) {
	s.order = append(s.order, id)
	s.records[id] = &record{
		id:       id,
		typ:      host.TypeLight,
		light:    host.LightSun,
		rotation: rotation,
	}
	s.update(id).ObjectLevel = true
}

// Remove deletes an object. The removal surfaces as an object-level
// change on the next flush.
func (s *Scene) Remove(id host.ObjectID) {
	if _, ok := s.records[id]; !ok {
		return
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.update(id).ObjectLevel = true
}

// SetMesh replaces an object's geometry and flags a geometry change.
func (s *Scene) SetMesh(id host.ObjectID, mesh *host.Mesh) {
	rec, ok := s.records[id]
	if !ok || rec.typ != host.TypeMesh {
		return
	}
	rec.mesh = mesh
	s.update(id).Geometry = true
}

// SetTransform moves an object. Pure transform edits raise no change
// flag: the renderer fetches transforms fresh every frame.
func (s *Scene) SetTransform(id host.ObjectID, m math.Mat4) {
	if rec, ok := s.records[id]; ok {
		rec.transform = m
	}
}

// SetRotation re-aims a light and flags an object-level change so the
// renderer rescans its light set.
func (s *Scene) SetRotation(id host.ObjectID, q math.Quat) {
	rec, ok := s.records[id]
	if !ok {
		return
	}
	rec.rotation = q
	s.update(id).ObjectLevel = true
}

// Dirty reports whether changes are waiting to be flushed.
func (s *Scene) Dirty() bool {
	return !s.flushed || len(s.updates) > 0
}

// Flush returns an immutable snapshot of the scene plus the accumulated
// updates. The first flush carries the first-sync flag and no updates,
// mirroring the host's initial full scan.
func (s *Scene) Flush() (*host.SceneSnapshot, []host.Update, bool) {
	snapshot := &host.SceneSnapshot{
		Objects: make([]*host.Object, 0, len(s.order)),
	}
	for _, id := range s.order {
		rec := s.records[id]
		obj := &host.Object{
			ID:       rec.id,
			Type:     rec.typ,
			Mesh:     rec.mesh,
			Light:    rec.light,
			Rotation: rec.rotation,
		}
		if rec.typ == host.TypeMesh {
			r := rec
			obj.Transform = func() math.Mat4 { return r.transform }
		}
		snapshot.Objects = append(snapshot.Objects, obj)
	}

	first := !s.flushed
	s.flushed = true

	var updates []host.Update
	if !first {
		updates = make([]host.Update, 0, len(s.updates))
		for _, id := range s.order {
			if up, ok := s.updates[id]; ok {
				updates = append(updates, *up)
				delete(s.updates, id)
			}
		}
		// Removed objects no longer appear in order but their
		// object-level change must still reach the renderer.
		for _, up := range s.updates {
			updates = append(updates, *up)
		}
	}
	s.updates = make(map[host.ObjectID]*host.Update)

	return snapshot, updates, first
}
