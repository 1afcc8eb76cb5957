package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Versioned binary codecs for persisted state. Fixed-width fields are written
// raw; variable fields are length-prefixed. JSON is deliberately avoided here
// so the stored form cannot drift with key ordering or encoder defaults.
const (
	ratchetStateVersion   = 1
	senderKeyStateVersion = 1
)

type codecWriter struct{ buf bytes.Buffer }

func (w *codecWriter) u8(v byte)     { w.buf.WriteByte(v) }
func (w *codecWriter) u32(v uint32)  { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *codecWriter) raw(b []byte)  { w.buf.Write(b) }
func (w *codecWriter) blob(b []byte) { w.u32(uint32(len(b))); w.buf.Write(b) }

type codecReader struct{ b []byte }

func (r *codecReader) u8() (byte, error) {
	if len(r.b) < 1 {
		return 0, fmt.Errorf("codec: truncated")
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v, nil
}

func (r *codecReader) u32() (uint32, error) {
	if len(r.b) < 4 {
		return 0, fmt.Errorf("codec: truncated")
	}
	v := binary.BigEndian.Uint32(r.b[:4])
	r.b = r.b[4:]
	return v, nil
}

func (r *codecReader) raw(n int) ([]byte, error) {
	if len(r.b) < n {
		return nil, fmt.Errorf("codec: truncated")
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v, nil
}

func (r *codecReader) blob() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint32(len(r.b)) < n {
		return nil, fmt.Errorf("codec: blob length %d exceeds remaining %d", n, len(r.b))
	}
	if n == 0 {
		return nil, nil
	}
	v := append([]byte(nil), r.b[:n]...)
	r.b = r.b[n:]
	return v, nil
}

func (r *codecReader) done() error {
	if len(r.b) != 0 {
		return fmt.Errorf("codec: %d trailing bytes", len(r.b))
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *RatchetState) MarshalBinary() ([]byte, error) {
	var w codecWriter
	w.u8(ratchetStateVersion)
	w.blob(s.RootKey)
	w.raw(s.DHPriv[:])
	w.raw(s.DHPub[:])
	w.blob(s.PeerDH)
	w.blob(s.SendCK)
	w.blob(s.RecvCK)
	w.u32(s.Ns)
	w.u32(s.Nr)
	w.u32(s.PN)
	w.u32(uint32(len(s.Skipped)))
	for _, sk := range s.Skipped {
		w.raw(sk.DH[:])
		w.u32(sk.N)
		w.blob(sk.MK)
	}
	if s.PendingHandshake != nil {
		w.u8(1)
		w.blob([]byte(s.PendingHandshake.EK))
		w.blob([]byte(s.PendingHandshake.IK))
		w.blob([]byte(s.PendingHandshake.PQ))
	} else {
		w.u8(0)
	}
	return w.buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *RatchetState) UnmarshalBinary(data []byte) error {
	r := codecReader{b: data}
	v, err := r.u8()
	if err != nil {
		return err
	}
	if v != ratchetStateVersion {
		return fmt.Errorf("codec: unsupported ratchet state version %d", v)
	}
	out := RatchetState{}
	if out.RootKey, err = r.blob(); err != nil {
		return err
	}
	priv, err := r.raw(32)
	if err != nil {
		return err
	}
	copy(out.DHPriv[:], priv)
	pub, err := r.raw(32)
	if err != nil {
		return err
	}
	copy(out.DHPub[:], pub)
	if out.PeerDH, err = r.blob(); err != nil {
		return err
	}
	if len(out.PeerDH) != 0 && len(out.PeerDH) != 32 {
		return fmt.Errorf("codec: peer DH length %d", len(out.PeerDH))
	}
	if out.SendCK, err = r.blob(); err != nil {
		return err
	}
	if out.RecvCK, err = r.blob(); err != nil {
		return err
	}
	if out.Ns, err = r.u32(); err != nil {
		return err
	}
	if out.Nr, err = r.u32(); err != nil {
		return err
	}
	if out.PN, err = r.u32(); err != nil {
		return err
	}
	n, err := r.u32()
	if err != nil {
		return err
	}
	if n > MaxSkipped {
		return fmt.Errorf("codec: skipped count %d exceeds cap", n)
	}
	for i := uint32(0); i < n; i++ {
		var sk SkippedKey
		dh, err := r.raw(32)
		if err != nil {
			return err
		}
		copy(sk.DH[:], dh)
		if sk.N, err = r.u32(); err != nil {
			return err
		}
		if sk.MK, err = r.blob(); err != nil {
			return err
		}
		out.Skipped = append(out.Skipped, sk)
	}
	hasHS, err := r.u8()
	if err != nil {
		return err
	}
	if hasHS == 1 {
		var hdr X3DHHeader
		ek, err := r.blob()
		if err != nil {
			return err
		}
		ik, err := r.blob()
		if err != nil {
			return err
		}
		pq, err := r.blob()
		if err != nil {
			return err
		}
		hdr.EK, hdr.IK, hdr.PQ = string(ek), string(ik), string(pq)
		out.PendingHandshake = &hdr
	}
	if err := r.done(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *SenderKeyState) MarshalBinary() ([]byte, error) {
	var w codecWriter
	w.u8(senderKeyStateVersion)
	w.blob(s.ChainKey)
	w.u32(s.Step)
	w.u32(uint32(len(s.Skipped)))
	for _, sk := range s.Skipped {
		w.u32(sk.Step)
		w.blob(sk.MK)
	}
	return w.buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *SenderKeyState) UnmarshalBinary(data []byte) error {
	r := codecReader{b: data}
	v, err := r.u8()
	if err != nil {
		return err
	}
	if v != senderKeyStateVersion {
		return fmt.Errorf("codec: unsupported sender key state version %d", v)
	}
	out := SenderKeyState{}
	if out.ChainKey, err = r.blob(); err != nil {
		return err
	}
	if out.Step, err = r.u32(); err != nil {
		return err
	}
	n, err := r.u32()
	if err != nil {
		return err
	}
	if n > MaxSkipped {
		return fmt.Errorf("codec: skipped count %d exceeds cap", n)
	}
	for i := uint32(0); i < n; i++ {
		var sk SkippedStepKey
		if sk.Step, err = r.u32(); err != nil {
			return err
		}
		if sk.MK, err = r.blob(); err != nil {
			return err
		}
		out.Skipped = append(out.Skipped, sk)
	}
	if err := r.done(); err != nil {
		return err
	}
	*s = out
	return nil
}
