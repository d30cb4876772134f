// bdk is the Book Data Kit. It contains the pieces used to carve bounded,
// internally consistent extracts out of the full Goodreads-style dump of
// books, authors, genres, reviews and shelf interactions.
//
// The central pipeline is built from a handful of small interfaces, each with
// a basic implementation here and more specialized ones in sub-packages.
//
// 1. Source
//
//    A bdk.Source is at the beginning of every extraction. The raw dump is
//    spread across gzipped line-delimited JSON files, flat CSV mapping files,
//    S3 buckets, and (for live collection) Kafka topics. Different Sources
//    know how to get records out of each of those systems one at a time,
//    behind one convenient interface. A Source never fails hard on a single
//    unparseable record - it surfaces it as a skippable error so the caller
//    can count it and move on.
//
// 2. Ranker and Policy
//
//    The sample package counts occurrences of a grouping key (reviews per
//    user, say) in a single streaming pass, and a Policy picks the anchor
//    set of keys to keep - either a fraction of the population or a
//    cumulative-count budget. Memory here is bounded by the number of
//    distinct keys, never by the corpus size.
//
// 3. Translator
//
//    Original identifiers in the dump are opaque strings. A bdk.Translator
//    maps each kept identifier of an entity class to a dense integer id,
//    allocated in first-seen order starting at 1. The in-memory MapTranslator
//    is the default; the leveldb and boltdb sub-packages persist the mapping
//    on disk when the kept set is too large for memory.
//
// 4. Extraction cascade
//
//    The extract package streams each entity type once, dropping every record
//    whose foreign keys do not all resolve against the kept-identifier sets,
//    rewriting identifiers through the Translator, and writing CSV extracts
//    with fixed column orders. Kept decisions cascade: kept users decide kept
//    reviews, kept reviews decide kept books, kept books decide kept authors
//    and genres.
package bdk
