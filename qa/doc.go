// Package qa implements the retrieval augmented question answering graphs.
//
// Two graphs are provided. Simple QA retrieves the chunks most similar to the
// question and asks the generator to answer from them. Filtered QA first asks
// the generator to turn the question into a structured search query naming a
// section of the source document, then retrieves only from that section.
//
// The steps are exported individually (RetrieveStep, RetrieveWithFilterStep,
// AnalyzeStep, GenerateStep) so callers can assemble their own graphs with
// the pipeline package.
package qa
