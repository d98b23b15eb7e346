// Package bovw builds bag-of-visual-words vocabularies from labelled images.
//
// The pipeline has three stages:
//
//  1. Aggregate: each image of a batch is reduced to an H×W×alpha descriptor
//     tensor (FAST corners plus HOG of a 7×7 patch, one channel per keypoint)
//     and appended, together with its label, to a persisted corpus.
//  2. Learn: all corpus rows are clustered with k-means into a vocabulary of
//     K visual words.
//  3. Assign: every pixel of a new image is mapped to the index of its
//     nearest visual word.
//
// # Quick Start
//
//	cfg := config.Default()
//	cfg.FeatDir = "./feat"
//
//	p, _ := bovw.New(cfg)
//	_, _ = p.Aggregate(ctx, []string{"a.png", "b.png"}, []int64{0, 1})
//	v, _, _ := p.Learn(ctx)
//	wm, _ := p.WordMap(ctx, v, "c.png")
//
// Artifacts are written through a blobstore.Store: the local file system by
// default, or S3 and MinIO via WithStore.
//
// # Observability
//
// Pass WithLogger for structured logs and WithMetricsCollector to hook the
// pipeline into a monitoring system. The bovw command exports Prometheus
// metrics this way.
package bovw
