// SPDX-License-Identifier: EPL-2.0

package soundfile

import "github.com/ik5/sndfiler/utils"

// XferIn decodes nframes interleaved frames from buf into the caller's float
// vectors starting at atFrame. Vectors beyond the file's channel count are
// zero-filled over the same frame range.
func XferIn(sf *Soundfile, vecs [][]float32, atFrame int64, buf []byte, nframes int) {
	channels := sf.Channels
	if channels > len(vecs) {
		channels = len(vecs)
	}
	bpf := sf.BytesPerFrame
	big := sf.BigEndian
	for i := 0; i < channels; i++ {
		vec := vecs[i][atFrame:]
		base := i * sf.BytesPerSample
		switch sf.BytesPerSample {
		case 2:
			for j := 0; j < nframes; j++ {
				vec[j] = utils.ReadPCM16(buf[base+j*bpf:], big)
			}
		case 3:
			for j := 0; j < nframes; j++ {
				vec[j] = utils.ReadPCM24(buf[base+j*bpf:], big)
			}
		case 4:
			for j := 0; j < nframes; j++ {
				vec[j] = utils.ReadPCM32(buf[base+j*bpf:], big)
			}
		}
	}
	for i := channels; i < len(vecs); i++ {
		vec := vecs[i][atFrame:]
		for j := 0; j < nframes; j++ {
			vec[j] = 0
		}
	}
}

// XferOut encodes nframes frames from the caller's float vectors, starting
// at onset within each vector, into buf. Vectors missing for a channel are
// encoded as silence. normalFactor scales every sample on the way out.
func XferOut(sf *Soundfile, vecs [][]float32, buf []byte, nframes int, onset int64, normalFactor float32) {
	bpf := sf.BytesPerFrame
	big := sf.BigEndian
	for i := 0; i < sf.Channels; i++ {
		var vec []float32
		if i < len(vecs) {
			vec = vecs[i][onset:]
		}
		base := i * sf.BytesPerSample
		switch sf.BytesPerSample {
		case 2:
			for j := 0; j < nframes; j++ {
				utils.PutPCM16(buf[base+j*bpf:], sample(vec, j)*normalFactor, big)
			}
		case 3:
			for j := 0; j < nframes; j++ {
				utils.PutPCM24(buf[base+j*bpf:], sample(vec, j)*normalFactor, big)
			}
		case 4:
			for j := 0; j < nframes; j++ {
				utils.PutPCM32(buf[base+j*bpf:], sample(vec, j)*normalFactor, big)
			}
		}
	}
}

func sample(vec []float32, j int) float32 {
	if vec == nil {
		return 0
	}
	return vec[j]
}
