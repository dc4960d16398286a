// Package sphinx models the conf.py consumed by the Sphinx documentation
// generator and the breathe bridge extension.
//
// A Record is built once from Fields, validated, and then only read. It can
// be written out as a conf.py module (RenderConfPy) or dumped as YAML/JSON
// keyed by the conf.py option names (Marshal).
package sphinx
